package warehouse

// Statement is one unit of work sent to the warehouse. Each statement runs in
// its own transaction.
type Statement struct {
	Name string

	// Target is the table the statement writes.
	Target string

	// Reads lists the tables the statement selects from.
	Reads []string

	SQL string
}
