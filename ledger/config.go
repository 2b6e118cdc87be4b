package ledger

import (
	"encoding/hex"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/shopspring/decimal"
)

const (
	DefaultStorePath      = "~/.nfcore/data"
	DefaultTimeout        = 30 * time.Second
	DefaultCacheTTL       = 10 * time.Minute
	DefaultSignatureFee   = "0.000005"
	DefaultAccountRentFee = "0.0015"
	DefaultLogLevel       = 2
)

type StoreConfig struct {
	Path string `toml:"path"`
}

type LedgerConfig struct {
	Commitment string `toml:"commitment"`
	Timeout    string `toml:"timeout"`

	commitment Commitment
	timeout    time.Duration
}

type FeesConfig struct {
	Signature   string `toml:"signature"`
	AccountRent string `toml:"account-rent"`

	signature   decimal.Decimal
	accountRent decimal.Decimal
}

type PayerConfig struct {
	Seed string `toml:"seed"`
}

type CacheConfig struct {
	TTL string `toml:"ttl"`

	ttl time.Duration
}

type LogConfig struct {
	Level int `toml:"level"`
}

type Configuration struct {
	Store  StoreConfig  `toml:"store"`
	Ledger LedgerConfig `toml:"ledger"`
	Fees   FeesConfig   `toml:"fees"`
	Payer  PayerConfig  `toml:"payer"`
	Cache  CacheConfig  `toml:"cache"`
	Log    LogConfig    `toml:"log"`
}

func Setup(path string) (*Configuration, error) {
	data, err := os.ReadFile(ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("config load failed (%s): %w", path, err)
	}
	return ParseConfiguration(data)
}

func ParseConfiguration(data []byte) (*Configuration, error) {
	var conf Configuration
	err := toml.Unmarshal(data, &conf)
	if err != nil {
		return nil, fmt.Errorf("config parse failed: %w", err)
	}
	err = conf.normalize()
	if err != nil {
		return nil, err
	}
	return &conf, nil
}

func DefaultConfiguration() *Configuration {
	conf := &Configuration{}
	err := conf.normalize()
	if err != nil {
		panic(err)
	}
	return conf
}

func (conf *Configuration) normalize() error {
	if conf.Store.Path == "" {
		conf.Store.Path = DefaultStorePath
	}
	conf.Store.Path = ExpandHome(conf.Store.Path)
	if conf.Fees.Signature == "" {
		conf.Fees.Signature = DefaultSignatureFee
	}
	if conf.Fees.AccountRent == "" {
		conf.Fees.AccountRent = DefaultAccountRentFee
	}
	if conf.Log.Level == 0 {
		conf.Log.Level = DefaultLogLevel
	}

	c, err := ParseCommitment(conf.Ledger.Commitment)
	if err != nil {
		return fmt.Errorf("ledger config invalid: %w", err)
	}
	conf.Ledger.commitment = c
	conf.Ledger.timeout, err = parseDuration(conf.Ledger.Timeout, DefaultTimeout)
	if err != nil {
		return fmt.Errorf("ledger config invalid timeout: %w", err)
	}
	conf.Cache.ttl, err = parseDuration(conf.Cache.TTL, DefaultCacheTTL)
	if err != nil {
		return fmt.Errorf("cache config invalid ttl: %w", err)
	}

	conf.Fees.signature, err = parseFee(conf.Fees.Signature)
	if err != nil {
		return fmt.Errorf("fees config invalid signature: %w", err)
	}
	conf.Fees.accountRent, err = parseFee(conf.Fees.AccountRent)
	if err != nil {
		return fmt.Errorf("fees config invalid account-rent: %w", err)
	}

	if conf.Payer.Seed != "" {
		_, err = conf.PayerKeypair()
		if err != nil {
			return fmt.Errorf("payer config invalid seed: %w", err)
		}
	}
	return nil
}

func (conf *Configuration) Commitment() Commitment {
	return conf.Ledger.commitment
}

func (conf *Configuration) Timeout() time.Duration {
	return conf.Ledger.timeout
}

func (conf *Configuration) CacheTTL() time.Duration {
	return conf.Cache.ttl
}

func (conf *Configuration) SignatureFee() decimal.Decimal {
	return conf.Fees.signature
}

func (conf *Configuration) AccountRentFee() decimal.Decimal {
	return conf.Fees.accountRent
}

func (conf *Configuration) PayerKeypair() (*Keypair, error) {
	if conf.Payer.Seed == "" {
		return nil, fmt.Errorf("payer seed missing")
	}
	seed, err := hex.DecodeString(conf.Payer.Seed)
	if err != nil {
		return nil, err
	}
	return KeypairFromSeed(seed)
}

func ExpandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	usr, err := user.Current()
	if err != nil {
		return path
	}
	return filepath.Join(usr.HomeDir, path[2:])
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", s)
	}
	return d, nil
}

func parseFee(s string) (decimal.Decimal, error) {
	fee, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative fee %s", s)
	}
	return fee, nil
}
