package certmanager

// Builder assembles a Config fluently, mirroring the original cert manager
// builder's chained setter methods (development_mode, with_cert_path,
// enable_acme, add_mtls_whitelist_path, ...).
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder seeded with DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

func (b *Builder) DevelopmentMode(enabled bool) *Builder {
	if enabled {
		b.cfg.Mode = ModeDevelopment
	}
	return b
}

func (b *Builder) WithCertPath(path string) *Builder {
	b.cfg.Mode = ModeStatic
	b.cfg.CertPath = path
	return b
}

func (b *Builder) WithKeyPath(path string) *Builder {
	b.cfg.KeyPath = path
	return b
}

func (b *Builder) WithCAPath(path string) *Builder {
	b.cfg.CAPath = path
	return b
}

func (b *Builder) WithValidityDays(days int) *Builder {
	b.cfg.ValidityDays = days
	return b
}

func (b *Builder) WithCertDir(dir string) *Builder {
	b.cfg.CertDir = dir
	return b
}

func (b *Builder) AddHostname(host string) *Builder {
	b.cfg.Hostnames = append(b.cfg.Hostnames, host)
	return b
}

func (b *Builder) WithHostnames(hosts []string) *Builder {
	b.cfg.Hostnames = hosts
	return b
}

func (b *Builder) EnableACME(enabled bool) *Builder {
	if enabled {
		b.cfg.Mode = ModeACME
	}
	return b
}

func (b *Builder) WithACMEProduction(production bool) *Builder {
	b.cfg.ACMEProduction = production
	return b
}

func (b *Builder) WithACMEEmail(email string) *Builder {
	b.cfg.ACMEEmail = email
	return b
}

func (b *Builder) WithDNSProvider(p DNSProvider) *Builder {
	b.cfg.DNSProvider = p
	return b
}

func (b *Builder) WithACMERenewalDays(days int) *Builder {
	b.cfg.ACMERenewalDays = days
	return b
}

func (b *Builder) WithACMECertDir(dir string) *Builder {
	b.cfg.ACMECertDir = dir
	return b
}

func (b *Builder) EnableMTLS(enabled bool) *Builder {
	b.cfg.MTLSEnabled = enabled
	return b
}

func (b *Builder) WithClientCertPath(path string) *Builder {
	b.cfg.ClientCertPath = path
	return b
}

func (b *Builder) WithClientKeyPath(path string) *Builder {
	b.cfg.ClientKeyPath = path
	return b
}

func (b *Builder) WithClientCAPath(path string) *Builder {
	b.cfg.ClientCAPath = path
	return b
}

func (b *Builder) WithMTLSMode(mode MTLSMode) *Builder {
	b.cfg.MTLSMode = mode
	return b
}

func (b *Builder) AutoGenerateClientCert(enabled bool) *Builder {
	b.cfg.AutoGenerateClientCert = enabled
	return b
}

func (b *Builder) WithClientCertSubject(subject string) *Builder {
	b.cfg.ClientCertSubject = subject
	return b
}

func (b *Builder) EnableAutoRefresh(enabled bool) *Builder {
	b.cfg.AutoRefreshEnabled = enabled
	return b
}

func (b *Builder) WithRefreshCheckInterval(seconds int) *Builder {
	b.cfg.RefreshCheckInterval = secondsToDuration(seconds)
	return b
}

func (b *Builder) ForceCertRotation(force bool) *Builder {
	b.cfg.ForceRotation = force
	return b
}

func (b *Builder) AddMTLSWhitelistPath(path string) *Builder {
	b.cfg.MTLSWhitelistPaths = append(b.cfg.MTLSWhitelistPaths, path)
	return b
}

func (b *Builder) AddMTLSWhitelistPaths(paths []string) *Builder {
	b.cfg.MTLSWhitelistPaths = append(b.cfg.MTLSWhitelistPaths, paths...)
	return b
}

func (b *Builder) EnableGRPC(enabled bool) *Builder {
	b.cfg.GRPCEnabled = enabled
	return b
}

// BuildConfig returns the assembled Config without constructing a Manager.
func (b *Builder) BuildConfig() Config { return b.cfg }

// Build validates the configuration and returns an uninitialized Manager.
// Call Initialize before using it to serve traffic.
func (b *Builder) Build() (*Manager, error) {
	return New(b.cfg)
}
