package domain

import documentdomain "investaccred/backend/internal/document/domain"

// baseDocuments are demanded of every applicant regardless of class.
var baseDocuments = []documentdomain.Type{
	documentdomain.TypeIDCard,
	documentdomain.TypeIncomeProof,
}

// classDocuments are the extra documents each classification must supply
// on top of the base set.
var classDocuments = map[InvestorClassification][]documentdomain.Type{
	ClassificationAccredited: {
		documentdomain.TypeTaxReturn,
		documentdomain.TypeFinancialStatement,
		documentdomain.TypeAccreditationCertificate,
	},
	ClassificationQualified: {
		documentdomain.TypeTaxReturn,
		documentdomain.TypeFinancialStatement,
	},
	ClassificationInstitutional: {
		documentdomain.TypeCompanyRegistration,
		documentdomain.TypeFinancialStatement,
	},
	ClassificationNonAccredited: {
		documentdomain.TypeBankStatement,
	},
}

// RequiredDocuments returns the full ordered document set an applicant of
// the given classification must upload. The result is a fresh slice.
func RequiredDocuments(c InvestorClassification) []documentdomain.Type {
	out := make([]documentdomain.Type, 0, len(baseDocuments)+len(classDocuments[c]))
	out = append(out, baseDocuments...)
	out = append(out, classDocuments[c]...)
	return out
}

// MissingDocuments returns required documents for which no upload exists,
// preserving the required-set order.
func MissingDocuments(c InvestorClassification, uploaded []documentdomain.Type) []documentdomain.Type {
	have := make(map[documentdomain.Type]bool, len(uploaded))
	for _, t := range uploaded {
		have[t] = true
	}
	var missing []documentdomain.Type
	for _, t := range RequiredDocuments(c) {
		if !have[t] {
			missing = append(missing, t)
		}
	}
	return missing
}
