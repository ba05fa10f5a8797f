package identity

// ComputeTrust derives the trust badge from registrar judgements.
// FeePaid and unverified judgements count for neither side; when a record is
// somehow both good and bad, good wins.
func ComputeTrust(judgements []Judgement) Trust {
	var t Trust
	for _, j := range judgements {
		switch j {
		case JudgementKnownGood, JudgementReasonable:
			t.IsGood = true
		case JudgementErroneous, JudgementLowQuality:
			t.IsBad = true
		}
	}
	if t.IsGood {
		t.IsBad = false
	}
	return t
}
