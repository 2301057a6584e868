package config

// Archive backends
const (
	ArchiveNone  = "none"
	ArchiveLocal = "local"
	ArchiveS3    = "s3"
)

// ArchiveConfig controls persistence of completed itineraries.
type ArchiveConfig struct {
	Backend   string `env:"ARCHIVE_BACKEND" yaml:"backend" default:"none"`
	LocalDir  string `env:"ARCHIVE_LOCAL_DIR" yaml:"local_dir" default:"./data"`
	S3Bucket  string `env:"ARCHIVE_S3_BUCKET" yaml:"s3_bucket"`
	S3Prefix  string `env:"ARCHIVE_S3_PREFIX" yaml:"s3_prefix"`
	S3Region  string `env:"ARCHIVE_S3_REGION" yaml:"s3_region"`
	S3Profile string `env:"ARCHIVE_S3_PROFILE" yaml:"s3_profile"`
}

// Enabled reports whether runs are persisted at all.
func (c ArchiveConfig) Enabled() bool {
	return c.Backend != "" && c.Backend != ArchiveNone
}
