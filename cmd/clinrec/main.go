package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clinrec/clinrec/internal/chart"
	"github.com/clinrec/clinrec/internal/config"
	"github.com/clinrec/clinrec/internal/platform/snapshot"
)

// clock drives ids, timestamps and ages.
var clock = time.Now

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfg     *config.ChartConfig
	logger  zerolog.Logger
	session *chart.Session
	now     func() time.Time
}

func newRootCmd() *cobra.Command {
	a := &app{now: clock}
	v := viper.New()

	root := &cobra.Command{
		Use:          "clinrec",
		Short:        "Local clinical chart: patients, visit records and prescriptions",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.open(cmd.Context(), v, cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("data-dir", "", "Directory holding the chart snapshot (env CLINREC_DATA_DIR)")
	flags.String("log-level", "", "Log level: debug, info, warn, error (env CLINREC_LOG_LEVEL)")
	flags.String("locale", "", "Collation locale for patient lists (env CLINREC_LOCALE)")
	flags.String("physician", "", "Physician printed on prescriptions (env CLINREC_PHYSICIAN)")
	flags.String("speciality", "", "Speciality printed on prescriptions (env CLINREC_SPECIALITY)")
	v.BindPFlag("CLINREC_DATA_DIR", flags.Lookup("data-dir"))
	v.BindPFlag("CLINREC_LOG_LEVEL", flags.Lookup("log-level"))
	v.BindPFlag("CLINREC_LOCALE", flags.Lookup("locale"))
	v.BindPFlag("CLINREC_PHYSICIAN", flags.Lookup("physician"))
	v.BindPFlag("CLINREC_SPECIALITY", flags.Lookup("speciality"))

	root.AddCommand(registerCmd(a))
	root.AddCommand(prescribeCmd(a))
	root.AddCommand(patientsCmd(a))
	root.AddCommand(timelineCmd(a))
	root.AddCommand(dashboardCmd(a))
	root.AddCommand(printCmd(a))
	return root
}

func (a *app) open(ctx context.Context, v *viper.Viper, cmd *cobra.Command) error {
	cfg, err := config.LoadChart(v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
		Level(level).With().Timestamp().Logger()

	store, err := snapshot.NewFileStore(cfg.DataDir)
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a.session = chart.NewSession(store, a.logger).WithIDGenerator(&chart.IDGenerator{Now: a.now})
	st := a.session.Open(ctx)
	a.logger.Debug().
		Str("data_dir", cfg.DataDir).
		Int("patients", len(st.Patients)).
		Msg("chart opened")
	return nil
}

func (a *app) prescriber() chart.Prescriber {
	p := chart.DefaultPrescriber
	if a.cfg.Physician != "" {
		p.Name = a.cfg.Physician
	}
	if a.cfg.Speciality != "" {
		p.Speciality = a.cfg.Speciality
	}
	return p
}
