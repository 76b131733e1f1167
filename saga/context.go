package saga

import "sync"

// Context контекст выполнения саги. Шаги обмениваются данными через контекст,
// доступ к которому безопасен из нескольких горутин.
type Context struct {
	mu   sync.RWMutex
	data map[string]interface{}
}

// NewContext создает новый контекст саги
func NewContext() *Context {
	return &Context{data: make(map[string]interface{})}
}

// Set сохраняет значение в контексте
func (c *Context) Set(key string, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
}

// Get возвращает значение из контекста
func (c *Context) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	value, ok := c.data[key]
	return value, ok
}

// GetString возвращает строковое значение из контекста
func (c *Context) GetString(key string) string {
	if value, ok := c.Get(key); ok {
		if s, ok := value.(string); ok {
			return s
		}
	}
	return ""
}

// Snapshot возвращает копию всех данных контекста
func (c *Context) Snapshot() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snapshot := make(map[string]interface{}, len(c.data))
	for k, v := range c.data {
		snapshot[k] = v
	}
	return snapshot
}
