package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func TestFromViperRequiresProject(t *testing.T) {
	_, err := fromViper(newTestViper())
	assert.ErrorIs(t, err, ErrMissingProject)
}

func TestFromViperDefaults(t *testing.T) {
	v := newTestViper()
	v.Set("WAREHOUSE_PROJECT", " special-ed ")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "special-ed", cfg.Warehouse.Project)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "groups", cfg.Warehouse.Namespaces["student"])
	assert.Equal(t, "assessment", cfg.Warehouse.Namespaces["assessment"])
	assert.Equal(t, 2*time.Minute, cfg.RowCache.TTL)
	assert.Equal(t, int64(20*1024*1024), cfg.Upload.MaxFileSizeBytes)
	assert.Nil(t, cfg.CORS.AllowedOrigins)
}

func TestFromViperOverrides(t *testing.T) {
	v := newTestViper()
	v.Set("WAREHOUSE_PROJECT", "p")
	v.Set("WAREHOUSE_NAMESPACE_CLASS", "buildings")
	v.Set("ROW_CACHE_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := fromViper(v)
	require.NoError(t, err)
	assert.Equal(t, "buildings", cfg.Warehouse.Namespaces["class"])
	assert.Equal(t, 2*time.Minute, cfg.RowCache.TTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
