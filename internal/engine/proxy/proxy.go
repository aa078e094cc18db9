// Package proxy provides thread-safe proxy rotation for the demo fleet: a
// round-robin list of upstream proxy addresses, one of which is assigned
// to each browser tab at launch (via Chrome's --proxy-server flag) so a
// multi-tab run can probe from several distinct network paths.
package proxy

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// Manager holds a list of proxy addresses and rotates through them in
// round-robin order.
type Manager struct {
	proxies []string
	index   int
	mutex   sync.Mutex
}

// LoadProxies reads a newline-delimited list of proxy addresses from
// filename, ignoring blank lines and lines starting with '#'. Replaces
// any previously loaded proxies.
func (m *Manager) LoadProxies(filename string) error {
	f, err := os.Open(filename) // #nosec G304 -- filename is an operator-supplied config path
	if err != nil {
		return fmt.Errorf("proxy: open %q: %w", filename, err)
	}
	defer f.Close()

	var loaded []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		loaded = append(loaded, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("proxy: read %q: %w", filename, err)
	}

	m.mutex.Lock()
	m.proxies = loaded
	m.index = 0
	m.mutex.Unlock()
	return nil
}

// GetNextProxy returns the next proxy in the rotation and advances the
// internal index. Returns "" if no proxies are loaded, signalling the
// caller to launch Chrome without a --proxy-server flag.
func (m *Manager) GetNextProxy() string {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.proxies) == 0 {
		return ""
	}
	p := m.proxies[m.index]
	m.index = (m.index + 1) % len(m.proxies)
	return p
}

// Count returns the number of loaded proxies.
func (m *Manager) Count() int {
	m.mutex.Lock()
	n := len(m.proxies)
	m.mutex.Unlock()
	return n
}
