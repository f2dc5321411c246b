package params

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Round holds the economic parameters of the sale/trade round cycle.
// Currency amounts are in the smallest native-currency unit (wei),
// asset amounts in whole token units.
type Round struct {
	Duration time.Duration

	// InitialPrice is the first sale round's price in wei per token.
	InitialPrice uint64

	// GrowthBps and Increment parameterize the default pricing policy:
	// nextPrice = prevPrice * GrowthBps / 10000 + Increment.
	// GrowthBps must be above 10000 so the price strictly increases.
	GrowthBps uint64
	Increment uint64

	// OpeningSupply is minted to the platform account at genesis and
	// becomes the first sale round's volume.
	OpeningSupply uint64

	// BurnLeftover burns unsold sale inventory at the Sale->Trade
	// transition instead of retaining it. Off by default.
	BurnLeftover bool
}

type Node struct {
	DataDir string
	APIAddr string
	LogFile string

	// PlatformAddress is the account holding escrowed tokens and the
	// retained native-currency balance (the treasury).
	PlatformAddress string
}

type Config struct {
	Round Round
	Node  Node
}

func Default() Config {
	return Config{
		Round: Round{
			Duration:      72 * time.Hour,
			InitialPrice:  10_000_000_000_000, // 0.00001 ETH
			GrowthBps:     10_300,             // +3% per sale round
			Increment:     4_000_000_000_000,  // +0.000004 ETH per sale round
			OpeningSupply: 100_000,
		},
		Node: Node{
			DataDir:         "data",
			APIAddr:         ":8080",
			LogFile:         "data/acdexd.log",
			PlatformAddress: "0x00000000000000000000000000000000acde0000",
		},
	}
}

// LoadFromEnv loads configuration from a .env file (if it exists) and
// environment variables. Priority: ENV > .env file > defaults.
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	if d := os.Getenv("ROUND_DURATION_SECONDS"); d != "" {
		if s, err := strconv.Atoi(d); err == nil && s > 0 {
			cfg.Round.Duration = time.Duration(s) * time.Second
		}
	}
	if p := os.Getenv("INITIAL_PRICE"); p != "" {
		if v, err := strconv.ParseUint(p, 10, 64); err == nil && v > 0 {
			cfg.Round.InitialPrice = v
		}
	}
	if g := os.Getenv("PRICE_GROWTH_BPS"); g != "" {
		if v, err := strconv.ParseUint(g, 10, 64); err == nil && v > 10_000 {
			cfg.Round.GrowthBps = v
		}
	}
	if i := os.Getenv("PRICE_INCREMENT"); i != "" {
		if v, err := strconv.ParseUint(i, 10, 64); err == nil {
			cfg.Round.Increment = v
		}
	}
	if s := os.Getenv("OPENING_SUPPLY"); s != "" {
		if v, err := strconv.ParseUint(s, 10, 64); err == nil {
			cfg.Round.OpeningSupply = v
		}
	}
	if b := os.Getenv("BURN_LEFTOVER"); b != "" {
		cfg.Round.BurnLeftover = b == "true"
	}

	if d := os.Getenv("DATA_DIR"); d != "" {
		cfg.Node.DataDir = d
	}
	if a := os.Getenv("API_ADDR"); a != "" {
		cfg.Node.APIAddr = a
	}
	if l := os.Getenv("LOG_FILE"); l != "" {
		cfg.Node.LogFile = l
	}
	if p := os.Getenv("PLATFORM_ADDRESS"); p != "" {
		cfg.Node.PlatformAddress = p
	}

	return cfg
}
