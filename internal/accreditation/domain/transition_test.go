package domain

import "testing"

func TestApply_Submission(t *testing.T) {
	tr, err := Apply(StatusNotStarted, EventSubmit)
	if err != nil {
		t.Fatalf("Apply(NotStarted, Submit): %v", err)
	}
	if tr.Next != StatusPending || !tr.NotifySubmitted {
		t.Fatalf("unexpected transition %+v", tr)
	}

	tr, err = Apply(StatusRejected, EventResubmit)
	if err != nil {
		t.Fatalf("Apply(Rejected, Resubmit): %v", err)
	}
	if tr.Next != StatusPending || !tr.ResetReviewArtifacts {
		t.Fatalf("unexpected transition %+v", tr)
	}
}

func TestApply_ResubmitOnlyFromRejected(t *testing.T) {
	for _, from := range []Status{StatusPending, StatusApproved, StatusExpired} {
		if _, err := Apply(from, EventResubmit); err == nil {
			t.Fatalf("Apply(%s, Resubmit) should fail", from)
		}
	}
	if _, err := Apply(StatusPending, EventSubmit); err == nil {
		t.Fatal("Apply(Pending, Submit) should fail")
	}
}

func TestApply_ReviewEventsFromAnyStoredStatus(t *testing.T) {
	stored := []Status{StatusPending, StatusApproved, StatusRejected, StatusExpired}
	for _, from := range stored {
		tr, err := Apply(from, EventAdminApprove)
		if err != nil {
			t.Fatalf("Apply(%s, AdminApprove): %v", from, err)
		}
		if tr.Next != StatusApproved || !tr.ComputeLimit || !tr.NotifyApproved {
			t.Fatalf("Apply(%s, AdminApprove) = %+v", from, tr)
		}

		tr, err = Apply(from, EventAdminReject)
		if err != nil {
			t.Fatalf("Apply(%s, AdminReject): %v", from, err)
		}
		if tr.Next != StatusRejected || !tr.ClearApproval || !tr.NotifyRejected {
			t.Fatalf("Apply(%s, AdminReject) = %+v", from, tr)
		}
	}
	if _, err := Apply(StatusNotStarted, EventAdminApprove); err == nil {
		t.Fatal("review events must not apply before a submission exists")
	}
}

func TestAdminEvent(t *testing.T) {
	for target, want := range map[Status]Event{
		StatusApproved: EventAdminApprove,
		StatusRejected: EventAdminReject,
		StatusExpired:  EventAdminExpire,
		StatusPending:  EventAdminReopen,
	} {
		got, err := AdminEvent(target)
		if err != nil {
			t.Fatalf("AdminEvent(%s): %v", target, err)
		}
		if got != want {
			t.Fatalf("AdminEvent(%s) = %s, want %s", target, got, want)
		}
	}
	if _, err := AdminEvent(StatusNotStarted); err == nil {
		t.Fatal("AdminEvent(NotStarted) should fail")
	}
}
