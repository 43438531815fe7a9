package interp

// Oracle decides branch outcomes. n counts earlier questions about the
// same condition text on the same lane, starting at zero.
type Oracle interface {
	Outcome(cond string, n int) bool
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(cond string, n int) bool

// Outcome implements Oracle.
func (f OracleFunc) Outcome(cond string, n int) bool {
	return f(cond, n)
}

// Outcomes is a table oracle: the n-th question about cond gets
// Outcomes[cond][n]. Past the end of a sequence the last value repeats;
// conditions missing from the table are false.
type Outcomes map[string][]bool

// Outcome implements Oracle.
func (o Outcomes) Outcome(cond string, n int) bool {
	seq := o[cond]
	switch {
	case len(seq) == 0:
		return false
	case n < len(seq):
		return seq[n]
	default:
		return seq[len(seq)-1]
	}
}

// Always answers every question with v.
func Always(v bool) Oracle {
	return OracleFunc(func(string, int) bool { return v })
}
