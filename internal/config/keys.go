package config

// KeyStatus describes whether one provider credential is configured.
type KeyStatus struct {
	Name   string // e.g. "Finnhub API key"
	IsSet  bool
	Source string // "env" or "config"
	Masked string // e.g. "fh_k...9x2"
}

// CheckAPIKeys reports the configuration status of every provider credential.
// Used by the status command; never exposes full key material.
func CheckAPIKeys(cfg *Config) []KeyStatus {
	return []KeyStatus{
		keyStatus("Finnhub API key", cfg.Finnhub.APIKey),
		keyStatus("Financial Datasets API key", cfg.FinancialDatasets.APIKey),
	}
}

func keyStatus(name, key string) KeyStatus {
	if key == "" {
		return KeyStatus{Name: name}
	}
	return KeyStatus{Name: name, IsSet: true, Source: "config/env", Masked: mask(key)}
}

// mask keeps the first four and last three characters of a key.
func mask(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-3:]
}
