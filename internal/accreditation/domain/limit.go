package domain

// Limit formula ceilings for the capped classifications.
const (
	qualifiedFallbackLimit     Money = 1_000_000
	nonAccreditedAbsoluteLimit Money = 50_000
)

// CalculateLimit derives the investment ceiling for an application.
// Only approved applications carry a positive limit; an admin override
// wins over every formula. All arithmetic is integer division on whole
// currency units, so repeated evaluation of the same inputs is exact.
//
// Formulae by classification, first available input wins:
//
//	Accredited, Institutional: unbounded
//	Qualified:     netWorth/5, else income/2, else 1,000,000
//	NonAccredited: min(50,000, income/10), else min(50,000, netWorth/20), else 50,000
func CalculateLimit(a *Accreditation) Limit {
	if a.OverrideEnabled && a.InvestmentLimit != nil {
		return *a.InvestmentLimit
	}
	if a.Status != StatusApproved {
		return Limit{Amount: 0}
	}

	switch a.InvestorClassification {
	case ClassificationAccredited, ClassificationInstitutional:
		return NoLimit
	case ClassificationQualified:
		if a.NetWorth != nil {
			return Limit{Amount: *a.NetWorth / 5}
		}
		if a.IncomeLevel != nil {
			return Limit{Amount: *a.IncomeLevel / 2}
		}
		return Limit{Amount: qualifiedFallbackLimit}
	case ClassificationNonAccredited:
		if a.IncomeLevel != nil {
			return Limit{Amount: minMoney(nonAccreditedAbsoluteLimit, *a.IncomeLevel/10)}
		}
		if a.NetWorth != nil {
			return Limit{Amount: minMoney(nonAccreditedAbsoluteLimit, *a.NetWorth/20)}
		}
		return Limit{Amount: nonAccreditedAbsoluteLimit}
	}
	return Limit{Amount: 0}
}

func minMoney(a, b Money) Money {
	if a < b {
		return a
	}
	return b
}
