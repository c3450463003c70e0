// Package config holds the settings of a named storage connection.
package config

// StorageConfig holds storage connection settings.
type StorageConfig struct {
	Type            string `yaml:"type"`             // "local" or "gcs".
	BucketName      string `yaml:"bucket_name"`      // Default bucket; for local storage, a subdirectory of BaseDir.
	CredentialsFile string `yaml:"credentials_file"` // Service account key for GCS. Empty uses application default credentials.
	BaseDir         string `yaml:"base_dir"`         // Root directory for local storage.
}
