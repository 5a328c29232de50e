package commands

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cablequest/lib/configutil"
	configsqlite "cablequest/lib/configutil/sqlite"
	"cablequest/lib/scrapers/plusd"
	"cablequest/lib/serviceutil"
	"cablequest/lib/telemetry"
	"cablequest/services/archive/db"
	"cablequest/services/notify"
)

type PlusdConfig struct {
	BaseUrl string `json:"base_url"`
	UseCurl bool   `json:"use_curl"`
}

type Config struct {
	Smtp     notify.SmtpConfig   `json:"smtp"`
	Database configsqlite.Struct `json:"database"`
	LogFile  string              `json:"log_file"`
	Plusd    PlusdConfig         `json:"plusd"`
}

var config Config
var verbose *bool

var rootCmd = &cobra.Command{
	Use:   "cablequest",
	Short: "cablequest searches the PlusD cable archive and exports the results.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg, err := configutil.ReadRecursively[Config]("config.json5")
		if err != nil && !os.IsNotExist(err) {
			serviceutil.Fatal("failed to read config", err)
		}
		config = cfg

		if config.LogFile != "" {
			telemetry.InitSlogFile(config.LogFile, *verbose)
		} else {
			telemetry.InitSlog(*verbose)
		}
	},
}

func init() {
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newPlusdClient() *plusd.Client {
	client, err := plusd.NewClient(plusd.ClientOptions{
		BaseUrl: config.Plusd.BaseUrl,
		UseCurl: config.Plusd.UseCurl,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize archive client", err)
	}
	return client
}

// openDatabase opens the cable archive, preferring an explicit --db
// path over the config file's database section. Returns nil when
// neither names a database.
func openDatabase(path string) *sql.DB {
	dbConfig := config.Database
	if path != "" {
		dbConfig = configsqlite.Struct{File: path}
	}
	if dbConfig.File == "" && dbConfig.Url == "" {
		return nil
	}

	database, err := dbConfig.OpenDB(db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open archive database", err)
	}
	return database
}
