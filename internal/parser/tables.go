package parser

import (
	"regexp"

	"github.com/dvloznov/gastomail/internal/domain"
)

// CategoryRule maps one category label to the keyword substrings that select
// it. Rules are evaluated in slice order; the first match wins.
type CategoryRule struct {
	Name     string
	Keywords []string
}

// Tables holds every lookup table the extraction stages consult. They are
// data, not logic: callers can extend or localize them without touching the
// extractors. The zero value is not usable; start from DefaultTables.
type Tables struct {
	// ServiceProviders are utility/telecom names matched against the sender
	// display name and the subject. A hit short-circuits merchant extraction.
	ServiceProviders []string

	// MerchantPatterns are subject-line patterns of the shape
	// "<verb preposition> <name>"; the first capture group is the candidate
	// merchant name.
	MerchantPatterns []*regexp.Regexp

	// Categories is the ordered category taxonomy.
	Categories []CategoryRule

	// BillKeywords raise the confidence score when present: they indicate
	// the message is a structured bill rather than marketing noise.
	BillKeywords []string

	// IncomeKeywords and ExpenseKeywords drive direction inference. Income
	// is checked first.
	IncomeKeywords  []string
	ExpenseKeywords []string
}

// DefaultTables returns the tables tuned for Spanish/Portuguese/English
// financial mail in a Chilean-centric deployment.
func DefaultTables() *Tables {
	return &Tables{
		ServiceProviders: []string{
			"enel", "aguas andinas", "metrogas", "vtr", "movistar", "entel", "claro",
			"chilquinta", "cge", "essbio", "esval", "sencillito", "servipag", "unired",
		},
		MerchantPatterns: []*regexp.Regexp{
			regexp.MustCompile(`(?i)pago a ([\w\s]+)`),
			regexp.MustCompile(`(?i)recibo de ([\w\s]+)`),
			regexp.MustCompile(`(?i)comprobante de ([\w\s]+)`),
			regexp.MustCompile(`(?i)transferido a ([\w\s]+)`),
			regexp.MustCompile(`(?i)notificación de ([\w\s]+)`),
		},
		Categories: []CategoryRule{
			{Name: domain.CategoryServicios, Keywords: []string{
				"enel", "agua", "gas", "luz", "metrogas", "chilquinta", "cge", "essbio",
				"esval", "vtr", "movistar", "entel", "claro", "internet", "telefonía",
				"electricidad", "sencillito", "servipag",
			}},
			{Name: domain.CategorySuscripciones, Keywords: []string{
				"netflix", "spotify", "google", "apple", "disney", "hbo", "amazon prime",
				"youtube", "linkedin", "canva", "midjourney", "openai",
			}},
			{Name: domain.CategoryAlimentacion, Keywords: []string{
				"pedidosya", "uber eats", "rappi", "jumbo", "lider", "unimarc", "tottus",
				"restaurant", "cafe", "mcdonald",
			}},
			{Name: domain.CategoryTransporte, Keywords: []string{
				"uber", "cabify", "didi", "gasolinera", "shell", "copec", "terpel",
				"metro", "bip",
			}},
			{Name: domain.CategoryFinanzas, Keywords: []string{
				"banco", "santander", "itau", "scotiabank", "bci", "estado",
				"transferencia", "pago tarjeta", "falabella",
			}},
			{Name: domain.CategoryCompras, Keywords: []string{
				"mercadolibre", "amazon", "falabella", "ripley", "paris", "aliexpress",
				"ebay", "h&m", "zara",
			}},
		},
		BillKeywords: []string{
			"vencimiento", "factura", "boleta", "nro de cliente", "cuenta no",
			"servicio", "suministro", "pago de cuenta", "total a pagar",
			"fecha de emisión", "detalle de cobros", "consumo", "valor a pagar",
			"monto pagado", "comprobante de pago",
		},
		IncomeKeywords: []string{
			"abonado", "recibido", "depósito", "deposit", "received",
			"transferencia recibida", "abono", "pix", "devolución", "pago recibido",
		},
		ExpenseKeywords: []string{
			"pago", "compra", "confirmación de orden", "factura", "boleta",
			"cargo", "cobro", "vencimiento", "debitado",
		},
	}
}
