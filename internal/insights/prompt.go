package insights

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/proingenius/aria-banking/internal/clients"
)

// SystemPrompt is sent as the system message of every insights request.
const SystemPrompt = "Eres ARIA, asistente de inteligencia bancaria de Promerica. Respondes siempre en JSON válido."

const responseTemplate = `{
  "snapshot_ejecutivo": "Resumen del valor del cliente y posicionamiento en cartera (2-3 líneas)",
  "analisis_comportamiento": {
    "patron_transaccional": "Análisis del patrón transaccional y uso de productos",
    "engagement_digital": "Nivel de engagement digital estimado",
    "tendencias": "Tendencias detectadas en últimos 6 meses"
  },
  "oportunidades": {
    "productos_nba": ["Producto 1 con alta probabilidad", "Producto 2", "Producto 3"],
    "cross_sell": "Recomendaciones de cross-sell basadas en perfil",
    "momentos_vida": "Momentos de vida próximos (jubilación, educación, etc.)"
  },
  "alertas_riesgos": {
    "churn": "Señales de churn detectadas o 'Sin señales detectadas'",
    "documentos": "Documentos próximos a vencer o 'Todos al día'",
    "compliance": "Status KYC/AML/PEP o 'Compliant'"
  }
}`

const guidelines = `IMPORTANTE:
- Basa el análisis en los datos proporcionados
- Para clientes con ingreso 0 o baja antigüedad, sé realista sobre oportunidades limitadas
- Para clientes del sector público, enfócate en productos de ahorro y protección
- Para clientes del sector privado, considera productos de inversión y crédito
- Sé específico con cifras cuando sea posible
- Mantén un tono profesional bancario`

// BuildPrompt renders the user prompt for one client. The output depends only on the record.
func BuildPrompt(rec clients.Record) string {
	p := profileOf(rec)

	var b strings.Builder
	b.WriteString("Eres ARIA, el asistente de inteligencia bancaria de Promerica especializado en relaciones premium.\n\n")

	b.WriteString("CONTEXTO DEL CLIENTE:\n")
	b.WriteString(rec.Resumen)
	b.WriteString("\n\n")

	b.WriteString("DATOS FINANCIEROS:\n")
	fmt.Fprintf(&b, "- ID: %s\n", rec.ClienteID)
	fmt.Fprintf(&b, "- Sector: %s\n\n", p.SectorLabel())

	b.WriteString("PERFIL SOCIODEMOGRÁFICO:\n")
	fmt.Fprintf(&b, "- Edad: %d años\n", p.Edad)
	fmt.Fprintf(&b, "- Sexo: %s\n", p.Sexo)
	fmt.Fprintf(&b, "- Ingreso mensual: ₡%.2f\n", p.Ingreso)
	fmt.Fprintf(&b, "- Antigüedad laboral: %s meses\n\n", formatNumber(p.AntiguedadLaboral))

	b.WriteString("TAREA:\n")
	b.WriteString("Genera un análisis ejecutivo en formato JSON con estas 4 secciones:\n\n")
	b.WriteString(responseTemplate)
	b.WriteString("\n\n")
	b.WriteString(guidelines)

	return b.String()
}

func profileOf(rec clients.Record) clients.Profile {
	if rec.Perfil == nil {
		return clients.Profile{}
	}
	return *rec.Perfil
}

// formatNumber prints integral values without decimals.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
