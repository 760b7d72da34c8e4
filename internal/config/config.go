package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// IP lookup backends.
const (
	IPLookupWebservice = "webservice"
	IPLookupGeoIP      = "geoip"
	IPLookupNone       = "none"
)

// External IP discovery methods.
const (
	IPDiscoveryDNS        = "dns"
	IPDiscoveryWebservice = "webservice"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Detection behaviour.
	DetectOptions  []string
	UpdateInterval time.Duration
	DisplayLocale  string

	// Synchronous probe inputs. Empty overrides read the host.
	LocaleOverride   string
	TimeZoneOverride string
	CarrierMCCMNC    string

	// IP address probe.
	IPLookup               string
	IPDiscovery            string
	IPAPIURL               string
	IPAPITimeout           time.Duration
	IPAPIRequestsPerMinute int
	GeoIPDBPath            string
	DNSResolver            string
	IPCacheSize            int

	// Location services probe.
	LocationSet        bool
	LocationLat        float64
	LocationLon        float64
	LocationPermission string

	// Mapbox reverse geocoding configuration.
	MapboxToken     string
	MapboxEnabled   bool
	MapboxTimeout   time.Duration
	MapboxCacheSize int

	// Kafka change publisher.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaTopic         string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	updateInterval, err := parsePositiveDuration("UPDATE_INTERVAL", "5m")
	if err != nil {
		return nil, err
	}
	ipapiTimeout, err := parsePositiveDuration("IPAPI_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}
	mapboxTimeout, err := parsePositiveDuration("MAPBOX_TIMEOUT", "5s")
	if err != nil {
		return nil, err
	}

	lat, lon, locationSet, err := parseLocation()
	if err != nil {
		return nil, err
	}

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DetectOptions:  splitList(os.Getenv("DETECT_OPTIONS")),
		UpdateInterval: updateInterval,
		DisplayLocale:  sharedcfg.EnvOrDefault("DISPLAY_LOCALE", "en"),

		LocaleOverride:   os.Getenv("LOCALE_OVERRIDE"),
		TimeZoneOverride: os.Getenv("TIMEZONE_OVERRIDE"),
		CarrierMCCMNC:    os.Getenv("CARRIER_MCCMNC"),

		IPLookup:               strings.ToLower(sharedcfg.EnvOrDefault("IP_LOOKUP", IPLookupWebservice)),
		IPDiscovery:            strings.ToLower(sharedcfg.EnvOrDefault("IP_DISCOVERY", IPDiscoveryWebservice)),
		IPAPIURL:               strings.TrimRight(sharedcfg.EnvOrDefault("IPAPI_URL", "http://ip-api.com"), "/"),
		IPAPITimeout:           ipapiTimeout,
		IPAPIRequestsPerMinute: parsePositiveInt("IPAPI_RATE", 40),
		GeoIPDBPath:            os.Getenv("GEOIP_DB_PATH"),
		DNSResolver:            sharedcfg.EnvOrDefault("DNS_RESOLVER", "resolver1.opendns.com:53"),
		IPCacheSize:            parsePositiveInt("IP_CACHE_SIZE", 64),

		LocationSet:        locationSet,
		LocationLat:        lat,
		LocationLon:        lon,
		LocationPermission: strings.ToLower(sharedcfg.EnvOrDefault("LOCATION_PERMISSION", "prompt")),

		MapboxToken:     mapboxToken,
		MapboxEnabled:   mapboxEnabled,
		MapboxTimeout:   mapboxTimeout,
		MapboxCacheSize: parsePositiveInt("MAPBOX_CACHE_SIZE", 1000),

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaTopic:         sharedcfg.EnvOrDefault("KAFKA_TOPIC", "region-observations"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.IPLookup {
	case IPLookupWebservice, IPLookupNone:
	case IPLookupGeoIP:
		if c.GeoIPDBPath == "" {
			return errors.New("IP_LOOKUP is geoip but GEOIP_DB_PATH is not set")
		}
	default:
		return fmt.Errorf("invalid IP_LOOKUP %q", c.IPLookup)
	}
	switch c.IPDiscovery {
	case IPDiscoveryDNS, IPDiscoveryWebservice:
	default:
		return fmt.Errorf("invalid IP_DISCOVERY %q", c.IPDiscovery)
	}
	switch c.LocationPermission {
	case "granted", "denied", "prompt":
	default:
		return fmt.Errorf("invalid LOCATION_PERMISSION %q", c.LocationPermission)
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_BROKERS is required")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_TOPIC is required")
		}
	}
	return nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return def
}

// parseLocation reads LOCATION_LAT/LOCATION_LON. Both or neither must be set.
func parseLocation() (lat, lon float64, set bool, err error) {
	latStr, lonStr := os.Getenv("LOCATION_LAT"), os.Getenv("LOCATION_LON")
	if latStr == "" && lonStr == "" {
		return 0, 0, false, nil
	}
	if latStr == "" || lonStr == "" {
		return 0, 0, false, errors.New("LOCATION_LAT and LOCATION_LON must be set together")
	}
	lat, err = strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return 0, 0, false, errors.New("invalid LOCATION_LAT")
	}
	lon, err = strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return 0, 0, false, errors.New("invalid LOCATION_LON")
	}
	return lat, lon, true, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
