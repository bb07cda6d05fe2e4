package types

import (
	"sync"

	"github.com/netrixframework/timeoutd/log"
)

// Service is any entity which runs on a separate thread
type Service interface {
	// Name of the service
	Name() string
	// Start to start the service
	Start() error
	// Running to indicate if the service is running
	Running() bool
	// Stop to stop the service
	Stop() error
}

// BaseService provides the basic nuts and bolts needed to implement a service.
// Unlike a one shot quit channel, a BaseService can be started again after it was stopped.
type BaseService struct {
	running bool
	lock    *sync.Mutex
	name    string
	quit    chan struct{}
	Logger  *log.Logger
}

// NewBaseService instantiates BaseService
func NewBaseService(name string, parentLogger *log.Logger) *BaseService {
	return &BaseService{
		running: false,
		lock:    new(sync.Mutex),
		name:    name,
		quit:    make(chan struct{}),
		Logger:  parentLogger.With(log.LogParams{"service": name}),
	}
}

// StartRunning sets the running flag. Returns false if the service was already running.
func (b *BaseService) StartRunning() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.running {
		return false
	}
	b.Logger.Debug("Starting service")
	b.running = true
	b.quit = make(chan struct{})
	return true
}

// StopRunning unsets the running flag and closes the quit channel.
// Returns false if the service was not running.
func (b *BaseService) StopRunning() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	if !b.running {
		return false
	}
	b.Logger.Debug("Stopping service")
	b.running = false
	close(b.quit)
	return true
}

// Name returns the name of the service
func (b *BaseService) Name() string {
	return b.name
}

// Running returns the flag
func (b *BaseService) Running() bool {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.running
}

// QuitCh returns the quit channel of the current run, closed when the service stops
func (b *BaseService) QuitCh() <-chan struct{} {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.quit
}
