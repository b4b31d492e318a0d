package cmd

import "github.com/mm1-sim/mm1-sim/sim"

// DefaultLabels is the queueing-theory vocabulary.
var DefaultLabels = sim.Labels{
	"customer":     "customer",
	"customers":    "customers",
	"server":       "server",
	"queue":        "queue",
	"service_time": "service time",
	"wait_time":    "wait time",
	"arrival_rate": "arrival rate",
	"service_rate": "service rate",
	"utilization":  "utilization",
	"arrivals":     "arrivals",
	"served":       "served",
	"simulator":    "simulator",
}

// HPCLabels recasts the report as a batch job scheduler.
var HPCLabels = sim.Labels{
	"customer":     "job",
	"customers":    "jobs",
	"server":       "cluster",
	"queue":        "job queue",
	"service_time": "runtime",
	"wait_time":    "queue wait",
	"arrival_rate": "submission rate",
	"service_rate": "completion rate",
	"utilization":  "cluster utilization",
	"arrivals":     "submissions",
	"served":       "completed",
	"simulator":    "scheduler",
}

// labelsFor picks the vocabulary for the run.
func labelsFor(hpc bool) sim.Labels {
	if hpc {
		return HPCLabels
	}
	return DefaultLabels
}
