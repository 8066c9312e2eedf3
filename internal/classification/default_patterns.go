package classification

import "github.com/Veraticus/cofre/internal/model"

// DefaultEntries returns the curated descriptor table for Brazilian bank statements.
// Patterns run against normalized text: lower-case, no accents, single spaces.
func DefaultEntries() []Entry {
	return []Entry{
		// Income - highest priority
		{
			Name:           "Salary",
			Pattern:        `\b(salario|folha de pagamento|pagto salario|proventos|remuneracao)\b`,
			CategoryID:     "receitas",
			SubcategoryID:  "salario",
			Classification: model.ClassificationIncome,
			Priority:       100,
			Confidence:     0.95,
		},
		{
			Name:           "Investment Income",
			Pattern:        `\b(rendimento|rendimentos|dividendos|juros sobre capital|jcp)\b`,
			CategoryID:     "receitas",
			SubcategoryID:  "investimentos",
			Classification: model.ClassificationIncome,
			Priority:       95,
			Confidence:     0.90,
		},
		{
			Name:           "Refund",
			Pattern:        `\b(estorno|reembolso|cashback|devolucao)\b`,
			CategoryID:     "receitas",
			SubcategoryID:  "estornos",
			Classification: model.ClassificationIncome,
			Priority:       90,
			Confidence:     0.85,
		},

		// Transfers
		{
			Name:           "Card Bill Payment",
			Pattern:        `\b(pagamento fatura|pgto fatura|pag fatura|fatura cartao)\b`,
			CategoryID:     "transferencias",
			SubcategoryID:  "fatura_cartao",
			Classification: model.ClassificationTransfer,
			Priority:       85,
			Confidence:     0.90,
		},
		{
			Name:           "Own Account Transfer",
			Pattern:        `\b(transf(erencia)? entre contas|aplicacao automatica|resgate automatico)\b`,
			CategoryID:     "transferencias",
			SubcategoryID:  "entre_contas",
			Classification: model.ClassificationTransfer,
			Priority:       80,
			Confidence:     0.85,
		},

		// Bank fees
		{
			Name:           "Bank Fees",
			Pattern:        `\b(tarifa|tarifas|anuidade|iof|cesta de servicos|encargos)\b`,
			CategoryID:     "financeiro",
			SubcategoryID:  "tarifas",
			Classification: model.ClassificationVariable,
			Priority:       75,
			Confidence:     0.90,
		},

		// Food
		{
			Name:           "Food Delivery",
			Pattern:        `\b(ifood|ifd|rappi|ze delivery|aiqfome|james delivery)\b`,
			CategoryID:     "alimentacao",
			SubcategoryID:  "delivery",
			Classification: model.ClassificationVariable,
			Priority:       60,
			Confidence:     0.85,
		},
		{
			Name:           "Supermarket",
			Pattern:        `\b(supermercado|supermerc|carrefour|pao de acucar|assai|atacadao|extra hiper|sams club|hortifruti|st marche|oba)\b`,
			CategoryID:     "alimentacao",
			SubcategoryID:  "supermercado",
			Classification: model.ClassificationVariable,
			Priority:       55,
			Confidence:     0.85,
		},
		{
			Name:           "Restaurants",
			Pattern:        `\b(restaurante|lanchonete|padaria|pizzaria|churrascaria|burger king|mc ?donalds|outback|starbucks)\b`,
			CategoryID:     "alimentacao",
			SubcategoryID:  "restaurantes",
			Classification: model.ClassificationVariable,
			Priority:       50,
			Confidence:     0.75,
		},

		// Transport
		{
			Name:           "Fuel",
			Pattern:        `\b(posto|auto posto|combustivel|shell box|ipiranga|petrobras|br mania)\b`,
			CategoryID:     "transporte",
			SubcategoryID:  "combustivel",
			Classification: model.ClassificationVariable,
			Priority:       55,
			Confidence:     0.85,
		},
		{
			Name:           "Tolls and Parking",
			Pattern:        `\b(sem parar|conectcar|veloe|estacionamento|estapar|pedagio)\b`,
			CategoryID:     "transporte",
			SubcategoryID:  "pedagio_estacionamento",
			Classification: model.ClassificationVariable,
			Priority:       50,
			Confidence:     0.80,
		},

		// Health
		{
			Name:           "Pharmacy",
			Pattern:        `\b(drogasil|droga raia|drogaria|farmacia|pague menos|panvel|drogao)\b`,
			CategoryID:     "saude",
			SubcategoryID:  "farmacia",
			Classification: model.ClassificationVariable,
			Priority:       55,
			Confidence:     0.85,
		},
		{
			Name:           "Health Insurance",
			Pattern:        `\b(unimed|amil|bradesco saude|sulamerica saude|hapvida|notredame)\b`,
			CategoryID:     "saude",
			SubcategoryID:  "plano_de_saude",
			Classification: model.ClassificationFixed,
			Priority:       60,
			Confidence:     0.90,
		},

		// Leisure
		{
			Name:           "Streaming",
			Pattern:        `\b(netflix|spotify|disney|hbo ?max|max com|globoplay|prime video|deezer|paramount|youtube premium|apple com bill)\b`,
			CategoryID:     "lazer",
			SubcategoryID:  "streaming",
			Classification: model.ClassificationFixed,
			Priority:       65,
			Confidence:     0.90,
		},
		{
			Name:           "Cinema and Events",
			Pattern:        `\b(cinemark|cinepolis|ingresso com|sympla|eventim|ticketmaster)\b`,
			CategoryID:     "lazer",
			SubcategoryID:  "eventos",
			Classification: model.ClassificationVariable,
			Priority:       50,
			Confidence:     0.80,
		},

		// Housing
		{
			Name:           "Electricity",
			Pattern:        `\b(enel|cemig|copel|light sa|celesc|coelba|cpfl|energisa|equatorial energia)\b`,
			CategoryID:     "moradia",
			SubcategoryID:  "energia",
			Classification: model.ClassificationFixed,
			Priority:       60,
			Confidence:     0.90,
		},
		{
			Name:           "Water",
			Pattern:        `\b(sabesp|cedae|copasa|sanepar|embasa|compesa|saneago)\b`,
			CategoryID:     "moradia",
			SubcategoryID:  "agua",
			Classification: model.ClassificationFixed,
			Priority:       60,
			Confidence:     0.90,
		},
		{
			Name:           "Telecom",
			Pattern:        `\b(vivo|claro|tim celular|oi fibra|net servicos|sky)\b`,
			CategoryID:     "moradia",
			SubcategoryID:  "telefonia_internet",
			Classification: model.ClassificationFixed,
			Priority:       55,
			Confidence:     0.85,
		},
		{
			Name:           "Rent and Condo",
			Pattern:        `\b(aluguel|condominio|quintoandar)\b`,
			CategoryID:     "moradia",
			SubcategoryID:  "aluguel_condominio",
			Classification: model.ClassificationFixed,
			Priority:       60,
			Confidence:     0.85,
		},

		// Shopping
		{
			Name:           "Marketplaces",
			Pattern:        `\b(mercadolivre|mercado livre|amazon|shopee|magalu|magazine luiza|americanas|aliexpress|shein)\b`,
			CategoryID:     "compras",
			SubcategoryID:  "online",
			Classification: model.ClassificationVariable,
			Priority:       45,
			Confidence:     0.75,
		},

		// Education
		{
			Name:           "Education",
			Pattern:        `\b(escola|colegio|faculdade|universidade|mensalidade escolar|udemy|alura)\b`,
			CategoryID:     "educacao",
			SubcategoryID:  "mensalidades",
			Classification: model.ClassificationFixed,
			Priority:       50,
			Confidence:     0.80,
		},
	}
}
