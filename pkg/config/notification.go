package config

type NotificationsConfig struct {
	// Detailed sends one embed per duplicate group and per link failure.
	Detailed     bool                `koanf:"detailed"`
	SkipEmptyRun bool                `yaml:"skip_empty_run" koanf:"skip_empty_run"`
	Service      NotificationService `koanf:"service"`
}

type NotificationService struct {
	Discord string `koanf:"discord"`
}
