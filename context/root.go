package context

import (
	"github.com/netrixframework/timeoutd/config"
	"github.com/netrixframework/timeoutd/intake"
	"github.com/netrixframework/timeoutd/log"
	"github.com/netrixframework/timeoutd/stats"
	"github.com/netrixframework/timeoutd/types"
)

// RootContext stores the shared state of the timeout service
type RootContext struct {
	// Config and instance of the configuration object
	Config *config.Config
	// TimeoutStore holds the pending timeouts, shared by the transports and the sweeper
	TimeoutStore *types.TimeoutStore
	// Intake is the single entry point transports use to submit requests
	Intake *intake.Intake
	// Clock used to compute due times and to sweep
	Clock types.Clock
	// Lateness stores how late recent replies were sent
	Lateness *stats.Window
	// Logger for logging purposes
	Logger *log.Logger
}

// NewRootContext creates an instance of the RootContext from the configuration
func NewRootContext(config *config.Config, logger *log.Logger) *RootContext {
	return NewRootContextWithClock(config, logger, types.RealClock{})
}

// NewRootContextWithClock creates a RootContext reading time from clock
func NewRootContextWithClock(config *config.Config, logger *log.Logger, clock types.Clock) *RootContext {
	store := types.NewTimeoutStore()
	return &RootContext{
		Config:       config,
		TimeoutStore: store,
		Intake:       intake.NewIntake(store, clock, logger),
		Clock:        clock,
		Lateness:     stats.NewWindow(config.StatsWindow),
		Logger:       logger,
	}
}
