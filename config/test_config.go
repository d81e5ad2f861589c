package config

// TestConfig is an easily mockable config that can be used in tests
type TestConfig struct {
	config map[string]interface{}
}

func NewTestConfig(config map[string]interface{}) Config {
	return &TestConfig{
		config: config,
	}
}

func (c *TestConfig) GetString(key string, defaultValue interface{}) string {
	if v, ok := c.config[key]; ok {
		return v.(string)
	}
	if s, ok := defaultValue.(string); ok {
		return s
	}
	return ""
}

func (c *TestConfig) GetInt(key string, defaultValue interface{}) int {
	if v, ok := c.config[key]; ok {
		return v.(int)
	}
	if i, ok := defaultValue.(int); ok {
		return i
	}
	return 0
}
