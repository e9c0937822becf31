package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Drivers de almacenamiento soportados.
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App       AppConfig
	DB        DBConfig
	JWT       JWTConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	Inventory InventoryConfig
	Telemetry TelemetryConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// StorageConfig selecciona el backend de persistencia.
type StorageConfig struct {
	Driver string // postgres | memory
}

// InventoryConfig parámetros del motor de conciliación.
type InventoryConfig struct {
	// FinalizeWorkers limita cuántos ítems se concilian en paralelo al finalizar.
	// Debe quedar por debajo de DB.MaxConns: la sesión retiene una conexión durante el cierre.
	FinalizeWorkers int
	// FinalizeItemTimeout plazo de la transacción de cada ítem al finalizar.
	FinalizeItemTimeout time.Duration
}

// TelemetryConfig métricas y trazas.
type TelemetryConfig struct {
	ServiceName    string
	OTLPEndpoint   string // vacío = sin exportador de trazas
	MetricsEnabled bool
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, JWT_SECRET, STORAGE_DRIVER, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "labinventario"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "labinventario"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    getInt(v, "DB_MAX_CONNS", 25),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "labinventario"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getString(v, "STORAGE_DRIVER", StoragePostgres)),
		},
		Inventory: InventoryConfig{
			FinalizeWorkers:     getInt(v, "INVENTORY_FINALIZE_WORKERS", 4),
			FinalizeItemTimeout: time.Duration(getInt(v, "INVENTORY_FINALIZE_ITEM_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    getString(v, "OTEL_SERVICE_NAME", "labinventario-api"),
			OTLPEndpoint:   getString(v, "OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			MetricsEnabled: getBool(v, "METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rechaza combinaciones que impedirían arrancar el servicio.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StoragePostgres, StorageMemory:
	default:
		return fmt.Errorf("config: STORAGE_DRIVER desconocido %q", c.Storage.Driver)
	}
	if c.JWT.Secret == "" && c.App.Env != "development" {
		return fmt.Errorf("config: JWT_SECRET es obligatorio fuera de development")
	}
	if c.Inventory.FinalizeWorkers < 1 {
		c.Inventory.FinalizeWorkers = 1
	}
	if c.Inventory.FinalizeItemTimeout <= 0 {
		c.Inventory.FinalizeItemTimeout = 30 * time.Second
	}
	if c.Storage.Driver == StoragePostgres && c.Inventory.FinalizeWorkers >= c.DB.MaxConns {
		return fmt.Errorf("config: INVENTORY_FINALIZE_WORKERS (%d) debe ser menor que DB_MAX_CONNS (%d)",
			c.Inventory.FinalizeWorkers, c.DB.MaxConns)
	}
	return nil
}

// MaxConcurrentFinalizes cuántas finalizaciones caben a la vez en el pool sin quedarse esperando
// una conexión que nunca se libera. 0 = sin límite (memoria).
func (c *Config) MaxConcurrentFinalizes() int {
	if c.Storage.Driver != StoragePostgres {
		return 0
	}
	n := c.DB.MaxConns / (c.Inventory.FinalizeWorkers + 1)
	if n < 1 {
		n = 1
	}
	return n
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
