package lambda

import (
	"sync"
	"time"

	"autoservice-billing-api/internal/config"
	"autoservice-billing-api/pkg/server"
)

// idleTimeout marks a warm container as stale when unused for this long
const idleTimeout = 5 * time.Minute

// ConnectionManager keeps one application container alive across warm invocations
type ConnectionManager struct {
	mu        sync.RWMutex
	container *server.Container
	lastUsed  time.Time
	load      func() (*config.Config, error)
}

var (
	globalConnectionManager *ConnectionManager
	connectionManagerOnce   sync.Once
)

// GetConnectionManager returns the process-wide connection manager. Configuration
// comes from the environment, adapted for the Lambda sandbox.
func GetConnectionManager() *ConnectionManager {
	connectionManagerOnce.Do(func() {
		globalConnectionManager = NewConnectionManager(config.GetOptimizedConfig)
	})
	return globalConnectionManager
}

// NewConnectionManager creates a manager that builds its container from load on first use
func NewConnectionManager(load func() (*config.Config, error)) *ConnectionManager {
	return &ConnectionManager{load: load}
}

// GetContainer returns the container, building it on the first call or after Cleanup
func (cm *ConnectionManager) GetContainer() (*server.Container, error) {
	cm.mu.RLock()
	if container := cm.container; container != nil {
		cm.mu.RUnlock()
		cm.UpdateLastUsed()
		return container, nil
	}
	cm.mu.RUnlock()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	// Another invocation may have won the race.
	if cm.container != nil {
		cm.lastUsed = time.Now()
		return cm.container, nil
	}

	cfg, err := cm.load()
	if err != nil {
		return nil, err
	}

	container, err := server.NewContainer(cfg, nil)
	if err != nil {
		return nil, err
	}

	cm.container = container
	cm.lastUsed = time.Now()
	return container, nil
}

// IsHealthy reports whether a container exists and was used recently
func (cm *ConnectionManager) IsHealthy() bool {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	return cm.container != nil && time.Since(cm.lastUsed) < idleTimeout
}

// Cleanup closes the container; the next GetContainer rebuilds it
func (cm *ConnectionManager) Cleanup() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.container == nil {
		return nil
	}

	err := cm.container.Close()
	cm.container = nil
	return err
}

// UpdateLastUsed updates the last used timestamp
func (cm *ConnectionManager) UpdateLastUsed() {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.lastUsed = time.Now()
}
