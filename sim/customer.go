// Defines the Customer struct that models one arrival's trip through the queue.
// Tracks arrival, service start and departure timestamps.

package sim

import "fmt"

// Customer models a single arrival's lifecycle in the simulation.
// StartServiceTime and DepartureTime are nil until the corresponding event
// happens; once DepartureTime is set the record is never modified again.
type Customer struct {
	ID          int64   // Monotonically assigned by the engine, starting at 1
	ArrivalTime float64 // Simulated time the customer joined the system
	ServiceTime float64 // Drawn when service starts; 0 while waiting

	StartServiceTime *float64 // nil while waiting in line
	DepartureTime    *float64 // nil while in system
}

// newCustomer creates a waiting customer that arrived at the given time.
func newCustomer(id int64, arrivalTime float64) *Customer {
	return &Customer{ID: id, ArrivalTime: arrivalTime}
}

// WaitTime returns the time spent in line, or 0 if service has not started.
func (c *Customer) WaitTime() float64 {
	if c.StartServiceTime == nil {
		return 0
	}
	return *c.StartServiceTime - c.ArrivalTime
}

// TimeInSystem returns wait plus service time, or 0 if not yet departed.
func (c *Customer) TimeInSystem() float64 {
	if c.DepartureTime == nil {
		return 0
	}
	return *c.DepartureTime - c.ArrivalTime
}

// IsCompleted reports whether the customer has left the system.
func (c *Customer) IsCompleted() bool {
	return c.DepartureTime != nil
}

// startService records the service start and the drawn service duration.
func (c *Customer) startService(now, duration float64) {
	c.StartServiceTime = &now
	c.ServiceTime = duration
}

// depart records the departure time.
func (c *Customer) depart(now float64) {
	c.DepartureTime = &now
}

// This method returns a human-readable string representation of a Customer.
func (c Customer) String() string {
	return fmt.Sprintf("Customer: (ID: %d, ArrivalTime: %.4f, Completed: %v)", c.ID, c.ArrivalTime, c.IsCompleted())
}
