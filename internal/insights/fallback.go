package insights

import (
	"fmt"

	"github.com/proingenius/aria-banking/internal/clients"
)

var (
	publicSectorProducts  = []string{"Cuenta de ahorro premium", "Seguro de vida", "Plan de pensiones"}
	privateSectorProducts = []string{"Tarjeta de crédito platinum", "Inversión en fondos", "Crédito personal"}
)

// Fallback builds rule-based insights for a record. It is total: a record without
// a profile is treated as an all-zero profile.
func Fallback(rec clients.Record) Insights {
	p := profileOf(rec)
	public := p.IsPublicSector()
	ageBand := ageCategory(p.Edad)
	incomeBand := incomeCategory(p.Ingreso)

	sector, focus := "privado", "inversión"
	products := privateSectorProducts
	if public {
		sector, focus = "público", "ahorro"
		products = publicSectorProducts
	}

	stability := "moderada"
	if p.AntiguedadLaboral > 50 {
		stability = "alta"
	}

	engagement := "Moderado - preferencia por canales mixtos"
	if p.Edad < 40 {
		engagement = "Alto - perfil digital activo"
	}

	crossSellTarget := "ahorro y protección básica"
	if incomeBand == "alto" {
		crossSellTarget = "inversión y seguros premium"
	}

	churn := "Sin señales detectadas"
	if p.Ingreso == 0 {
		churn = "Alerta: Sin ingresos reportados - riesgo de inactividad"
	}

	return Insights{
		SnapshotEjecutivo: fmt.Sprintf(
			"Cliente %s del sector %s con ingreso %s. Perfil de riesgo moderado con potencial de crecimiento en productos de %s.",
			ageBand, sector, incomeBand, focus),
		AnalisisComportamiento: AnalisisComportamiento{
			PatronTransaccional: fmt.Sprintf("Cliente con %s meses de antigüedad laboral, mostrando estabilidad %s.",
				formatNumber(p.AntiguedadLaboral), stability),
			EngagementDigital: engagement,
			Tendencias:        "Comportamiento estable sin variaciones significativas detectadas",
		},
		Oportunidades: Oportunidades{
			ProductosNBA: append([]string(nil), products...),
			CrossSell: fmt.Sprintf("Considerando ingreso de ₡%.0f, perfil óptimo para productos de %s.",
				p.Ingreso, crossSellTarget),
			MomentosVida: lifeMoment(p.Edad),
		},
		AlertasRiesgos: AlertasRiesgos{
			Churn:      churn,
			Documentos: "Pendiente verificación - requiere actualización KYC",
			Compliance: "Compliant - última verificación hace 6 meses",
		},
	}
}

func ageCategory(edad int) string {
	switch {
	case edad < 35:
		return "joven"
	case edad < 55:
		return "medio"
	default:
		return "senior"
	}
}

func incomeCategory(ingreso float64) string {
	switch {
	case ingreso < 2000:
		return "bajo"
	case ingreso < 6000:
		return "medio"
	default:
		return "alto"
	}
}

func lifeMoment(edad int) string {
	switch {
	case edad > 55:
		return "Próximo a jubilación - plan de retiro recomendado"
	case edad < 35:
		return "Inicio de carrera - productos de ahorro y crédito"
	default:
		return "Consolidación patrimonial - inversiones a mediano plazo"
	}
}
