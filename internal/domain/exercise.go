package domain

// Exercise rule governing when an option may be exercised.
type Exercise interface {
	Name() string
	// LastDate latest date on which the option can be exercised.
	LastDate() Date
}

// European exercisable on its expiry date only.
type European struct {
	Date Date
}

func (e European) Name() string   { return "european" }
func (e European) LastDate() Date { return e.Date }

// American exercisable on any date between Earliest and Latest.
type American struct {
	Earliest Date
	Latest   Date
}

func (e American) Name() string   { return "american" }
func (e American) LastDate() Date { return e.Latest }
