package checkpoint

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CheckpointSaves tracks checkpoints written
	CheckpointSaves = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "checkpoint_saves_total",
			Help: "Total number of harvest checkpoints saved",
		},
	)

	// CheckpointLoads tracks checkpoint lookups by result
	CheckpointLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkpoint_loads_total",
			Help: "Total number of checkpoint lookups by result",
		},
		[]string{"result"}, // "hit", "miss"
	)

	// CheckpointErrors tracks checkpoint operation errors
	CheckpointErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkpoint_errors_total",
			Help: "Total number of checkpoint operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
