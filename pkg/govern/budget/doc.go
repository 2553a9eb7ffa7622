// Package budget tracks cumulative spend on metered external calls
// against a configured ceiling.
//
// The Tracker splits responsibility the way real cost control has to:
// CheckAvailable is advisory (the true cost of a call is usually known
// only after it completes) and gates whether a call is attempted, while
// Report is the authoritative mutation and is always applied, whatever
// the advisory check said.
//
// Spend is monotonic: it only grows via Report and never goes negative.
// When hard-stop enforcement is on and spend reaches the ceiling, every
// further advisory check answers DecisionExceeded until an operator
// deliberately resets the tracker; nothing in the normal call flow
// undoes a blown budget.
package budget
