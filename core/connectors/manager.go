package connectors

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/strata-analytics/strata/core/logging"
)

// Manager holds named connectors with parallel initialization and shutdown.
// New connectors automatically benefit from parallel operations by
// implementing the Connector interface.
type Manager struct {
	connectors map[string]Connector
	mu         sync.RWMutex
}

// NewManager creates an empty Manager.
func NewManager() *Manager {
	return &Manager{
		connectors: make(map[string]Connector),
	}
}

// InitializeAll creates all connectors in parallel from the given adapter
// params. If any connector fails to initialize, all successfully created
// connectors are closed.
func (m *Manager) InitializeAll(adapters map[string]Params) error {
	if len(adapters) == 0 {
		return nil
	}

	log := logging.New("connectors")
	log.Info("Initializing adapters")

	g, _ := errgroup.WithContext(context.Background())

	for name, params := range adapters {
		g.Go(func() error {
			log.Debugf("Connecting adapter '%s' (%s)", name, params.Driver)

			conn, err := New(params)
			if err != nil {
				return fmt.Errorf("failed to create connector for adapter '%s': %w", name, err)
			}

			m.mu.Lock()
			m.connectors[name] = conn
			m.mu.Unlock()

			log.Infof("Connected adapter '%s'", name)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// Cleanup any successfully opened connectors on failure
		m.CloseAll()
		return err
	}

	return nil
}

// CloseAll closes all connectors in parallel, collecting and returning all
// errors.
func (m *Manager) CloseAll() error {
	m.mu.RLock()
	connectorCount := len(m.connectors)
	if connectorCount == 0 {
		m.mu.RUnlock()
		return nil
	}

	var wg sync.WaitGroup
	errChan := make(chan error, connectorCount)

	log := logging.New("connectors")
	log.Debugf("Closing %d connector(s)", connectorCount)

	for name, conn := range m.connectors {
		wg.Add(1)
		go func(name string, conn Connector) {
			defer wg.Done()
			if err := conn.Close(); err != nil {
				errChan <- fmt.Errorf("connector '%s': %w", name, err)
			}
		}(name, conn)
	}
	m.mu.RUnlock()

	wg.Wait()
	close(errChan)

	m.mu.Lock()
	m.connectors = make(map[string]Connector)
	m.mu.Unlock()

	return collectErrors(errChan)
}

// Get returns a connector by name
func (m *Manager) Get(name string) (Connector, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	conn, exists := m.connectors[name]
	return conn, exists
}

// Put registers a connector under a name, replacing any previous one.
func (m *Manager) Put(name string, conn Connector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectors[name] = conn
}

// Count returns the number of managed connectors
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connectors)
}

// collectErrors collects all errors from a channel and combines them
func collectErrors(errChan <-chan error) error {
	var errs []error
	for err := range errChan {
		errs = append(errs, err)
	}

	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	return errors.Join(errs...)
}
