package crawler

// State is the lifecycle phase of a crawl session.
type State int

const (
	// StateInit: visited sets, frontier and outcome list are empty.
	StateInit State = iota
	// StateSeeding: the sitemap is being read into the frontier.
	StateSeeding
	// StateCrawling: workers are claiming and fetching tasks.
	StateCrawling
	// StateDraining: no new work is claimed; in-flight tasks are finishing.
	StateDraining
	// StateDone: the report and ledger are final.
	StateDone
)

// String returns the upper-case name of the state.
func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateSeeding:
		return "SEEDING"
	case StateCrawling:
		return "CRAWLING"
	case StateDraining:
		return "DRAINING"
	case StateDone:
		return "DONE"
	default:
		return "UNKNOWN"
	}
}
