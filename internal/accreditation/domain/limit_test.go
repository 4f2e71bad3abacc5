package domain

import "testing"

func money(v int64) *Money {
	m := Money(v)
	return &m
}

func approved(c InvestorClassification, income, netWorth *Money) *Accreditation {
	return &Accreditation{
		InvestorClassification: c,
		Status:                 StatusApproved,
		IncomeLevel:            income,
		NetWorth:               netWorth,
	}
}

func TestCalculateLimit_Table(t *testing.T) {
	tests := []struct {
		name string
		acc  *Accreditation
		want Limit
	}{
		{"accredited unbounded", approved(ClassificationAccredited, money(100_000), money(500_000)), NoLimit},
		{"institutional unbounded", approved(ClassificationInstitutional, nil, nil), NoLimit},
		{"qualified net worth wins", approved(ClassificationQualified, money(300_000), money(1_000_000)), Limit{Amount: 200_000}},
		{"qualified income fallback", approved(ClassificationQualified, money(300_000), nil), Limit{Amount: 150_000}},
		{"qualified no financials", approved(ClassificationQualified, nil, nil), Limit{Amount: 1_000_000}},
		{"non-accredited income capped", approved(ClassificationNonAccredited, money(2_000_000), nil), Limit{Amount: 50_000}},
		{"non-accredited income under cap", approved(ClassificationNonAccredited, money(200_000), nil), Limit{Amount: 20_000}},
		{"non-accredited income wins over net worth", approved(ClassificationNonAccredited, money(200_000), money(10_000_000)), Limit{Amount: 20_000}},
		{"non-accredited net worth fallback", approved(ClassificationNonAccredited, nil, money(400_000)), Limit{Amount: 20_000}},
		{"non-accredited net worth capped", approved(ClassificationNonAccredited, nil, money(100_000_000)), Limit{Amount: 50_000}},
		{"non-accredited no financials", approved(ClassificationNonAccredited, nil, nil), Limit{Amount: 50_000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CalculateLimit(tt.acc); got != tt.want {
				t.Fatalf("CalculateLimit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCalculateLimit_ZeroUnlessApproved(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusRejected, StatusExpired} {
		acc := approved(ClassificationAccredited, money(1_000_000), money(10_000_000))
		acc.Status = status
		if got := CalculateLimit(acc); got != (Limit{Amount: 0}) {
			t.Fatalf("status %s: CalculateLimit() = %v, want zero", status, got)
		}
	}
}

func TestCalculateLimit_OverrideWins(t *testing.T) {
	acc := approved(ClassificationNonAccredited, money(200_000), nil)
	acc.OverrideEnabled = true
	acc.InvestmentLimit = &Limit{Amount: 75_000}
	if got := CalculateLimit(acc); got != (Limit{Amount: 75_000}) {
		t.Fatalf("CalculateLimit() = %v, want override 75000", got)
	}

	// An override without a stored amount falls through to the formula.
	acc.InvestmentLimit = nil
	if got := CalculateLimit(acc); got != (Limit{Amount: 20_000}) {
		t.Fatalf("CalculateLimit() = %v, want computed 20000", got)
	}
}

func TestCalculateLimit_IncomeMonotonic(t *testing.T) {
	prev := Money(-1)
	for income := int64(0); income <= 1_000_000; income += 10_000 {
		acc := approved(ClassificationNonAccredited, money(income), nil)
		got := CalculateLimit(acc)
		if got.Unbounded {
			t.Fatalf("income %d: limit unexpectedly unbounded", income)
		}
		if got.Amount < prev {
			t.Fatalf("income %d: limit %d dropped below %d", income, got.Amount, prev)
		}
		if got.Amount > 50_000 {
			t.Fatalf("income %d: limit %d exceeds absolute cap", income, got.Amount)
		}
		prev = got.Amount
	}
}

func TestLimitAllows(t *testing.T) {
	if !NoLimit.Allows(1 << 60) {
		t.Fatal("unbounded limit must allow any amount")
	}
	l := Limit{Amount: 100}
	if !l.Allows(100) {
		t.Fatal("amount equal to the limit must be allowed")
	}
	if l.Allows(101) {
		t.Fatal("amount above the limit must be denied")
	}
}
