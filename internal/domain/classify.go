package domain

import "strings"

// Category groups damage descriptions by what was affected.
type Category string

const (
	CategoryResidential    Category = "residential"
	CategoryCommercial     Category = "commercial"
	CategoryInfrastructure Category = "infrastructure"
	CategoryPersonal       Category = "personal"
	CategoryGeneral        Category = "general"

	// CategoryAll is a filter value only; ClassifyDamage never returns it.
	CategoryAll Category = "all"
)

// Categories lists every category ClassifyDamage can return, in rule order.
var Categories = []Category{
	CategoryResidential,
	CategoryCommercial,
	CategoryInfrastructure,
	CategoryPersonal,
	CategoryGeneral,
}

// categoryRule pairs a category with the keywords that select it.
type categoryRule struct {
	category Category
	keywords []string
}

// categoryRules is evaluated top to bottom; the first rule with a keyword
// contained in the lowercased text wins. Keywords are Portuguese because
// that is what the field reports are written in.
var categoryRules = []categoryRule{
	{CategoryResidential, []string{"residência", "casa", "apartamento", "domicílio"}},
	{CategoryCommercial, []string{"comércio", "empresa", "loja", "estabelecimento"}},
	{CategoryInfrastructure, []string{"poste", "fiação", "transformador", "rede elétrica"}},
	{CategoryPersonal, []string{"eletrônico", "geladeira", "computador", "alimento"}},
}

// ClassifyDamage assigns a damage description to exactly one category.
// Blank or unmatched text is CategoryGeneral.
func ClassifyDamage(text string) Category {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return CategoryGeneral
}

// ParseCategory validates a category label, accepting CategoryAll.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c == CategoryAll {
		return c, true
	}
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// FilterByCategory keeps damage-bearing events classified as category.
// CategoryAll keeps every damage-bearing event.
func FilterByCategory(events []Event, category Category) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if !e.HasDamage() {
			continue
		}
		if category == CategoryAll || ClassifyDamage(e.Damage) == category {
			out = append(out, e)
		}
	}
	return out
}

// CountByCategory tallies damage-bearing events per category. Every
// category is present in the result, possibly with zero.
func CountByCategory(events []Event) map[Category]int {
	counts := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		counts[c] = 0
	}
	for _, e := range events {
		if e.HasDamage() {
			counts[ClassifyDamage(e.Damage)]++
		}
	}
	return counts
}

// financialTerms mark damage descriptions that mention monetary loss.
var financialTerms = []string{"prejuízo", "perda", "dano", "custo"}

// DamageImpact estimates the impact of a damage report from its wording and
// severity. Reports mentioning monetary loss are one level worse than their
// severity alone suggests.
func DamageImpact(damage string, severity Severity) Impact {
	lower := strings.ToLower(damage)
	financial := false
	for _, term := range financialTerms {
		if strings.Contains(lower, term) {
			financial = true
			break
		}
	}

	switch severity {
	case SeverityHigh:
		return ImpactSevere
	case SeverityLow:
		if financial {
			return ImpactModerate
		}
		return ImpactBrief
	default:
		if financial {
			return ImpactLong
		}
		return ImpactModerate
	}
}
