package parser

import (
	"testing"

	"github.com/dvloznov/gastomail/internal/domain"
)

func TestInferCategory(t *testing.T) {
	p := newTestParser()

	tests := []struct {
		name     string
		merchant string
		content  string
		want     string
	}{
		{"utility by merchant", "Metrogas", "tu boleta llegó", domain.CategoryServicios},
		{"subscription by merchant", "Netflix", "cargo mensual", domain.CategorySuscripciones},
		{"food delivery by content", "Desconocido", "tu pedido de pedidosya va en camino", domain.CategoryAlimentacion},
		{"transport", "Uber", "total: $ 3.500", domain.CategoryTransporte},
		{"finance", "Banco Santander", "transferencia realizada", domain.CategoryFinanzas},
		{"shopping", "MercadoLibre", "tu paquete", domain.CategoryCompras},
		{"no match", "Ferretería", "compraste clavos", domain.CategoryOther},
		// "pagaste" contains "gas"; the merchant pass must win before the
		// content pass can misfile this as Servicios.
		{"merchant wins over content", "PedidosYa", "pagaste $ 12.500 con tu tarjeta", domain.CategoryAlimentacion},
		// Taxonomy order decides ties: Servicios is checked before
		// Suscripciones.
		{"order decides ties", "Desconocido", "vtr incluye netflix", domain.CategoryServicios},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.inferCategory(tt.merchant, tt.content); got != tt.want {
				t.Errorf("inferCategory(%q, %q) = %q, want %q", tt.merchant, tt.content, got, tt.want)
			}
		})
	}
}

func TestInferCategory_CustomTaxonomy(t *testing.T) {
	tables := DefaultTables()
	tables.Categories = append([]CategoryRule{
		{Name: "Mascotas", Keywords: []string{"veterinaria", "petshop"}},
	}, tables.Categories...)

	p := New(Options{Now: fixedClock, Tables: tables})

	if got := p.inferCategory("Veterinaria Los Olivos", "control anual"); got != "Mascotas" {
		t.Errorf("custom category = %q, want %q", got, "Mascotas")
	}
	// Existing taxonomy still applies after the rule before it misses.
	if got := p.inferCategory("Netflix", "cargo mensual"); got != domain.CategorySuscripciones {
		t.Errorf("default category = %q, want %q", got, domain.CategorySuscripciones)
	}
}
