package main

import (
	"flag"
	"fmt"
	"image"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/jypelle/homeboard/internal/srv"
	"github.com/jypelle/homeboard/internal/srv/config"
	"github.com/jypelle/homeboard/internal/srv/region"
	"github.com/jypelle/homeboard/internal/version"
	"github.com/sirupsen/logrus"
)

const configSuffix = "homeboard"

// command is one homeboardsrv subcommand with its own flag set.
type command struct {
	flags   *flag.FlagSet
	summary string
	usage   string
	run     func(configDir string, debugMode bool)
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true})

	mainCommand := filepath.Base(os.Args[0])

	debugMode := flag.Bool("d", false, "Enable debug mode")

	defaultConfigDir := "./." + configSuffix
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		defaultConfigDir = filepath.Join(userConfigDir, configSuffix)
	}
	configDir := flag.String("c", defaultConfigDir, "Location of the folder holding param.yaml")

	// run
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	simulationMode := runCmd.Bool("s", false, "Draw in a window instead of the panel and skip the broker")

	commands := []*command{
		{
			flags:   runCmd,
			summary: "Run the display until a stop signal (SIGUSR1 also halts the board)",
			usage:   "run [-s]",
			run: func(configDir string, debugMode bool) {
				runServer(configDir, debugMode, *simulationMode)
			},
		},
		{
			flags:   flag.NewFlagSet("routes", flag.ExitOnError),
			summary: "Print the topic route table in match order",
			usage:   "routes",
			run: func(configDir string, _ bool) {
				printRoutes(loadParam(configDir))
			},
		},
		{
			flags:   flag.NewFlagSet("layout", flag.ExitOnError),
			summary: "Print the face and rectangle of every region on the configured panel",
			usage:   "layout",
			run: func(configDir string, _ bool) {
				printLayout(loadParam(configDir))
			},
		},
		{
			flags:   flag.NewFlagSet("version", flag.ExitOnError),
			summary: "Show the version number",
			usage:   "version",
			run: func(string, bool) {
				fmt.Printf("Version %s\n", version.AppVersion.String())
			},
		},
	}

	flag.Usage = func() {
		fmt.Printf("\nUsage: %s [OPTIONS] COMMAND\n", mainCommand)
		fmt.Printf("\nSmart home status display fed by MQTT\n")
		fmt.Printf("\nOptions:\n")
		flag.PrintDefaults()
		fmt.Printf("\nCommands:\n")
		for _, cmd := range commands {
			fmt.Printf("  %-9s %s\n", cmd.flags.Name(), cmd.summary)
		}
		fmt.Printf("\nRun '%s COMMAND -h' for more information on a command.\n", mainCommand)
	}
	for _, cmd := range commands {
		cmd := cmd
		cmd.flags.Usage = func() {
			fmt.Printf("\nUsage: %s [OPTIONS] %s\n", mainCommand, cmd.usage)
			fmt.Printf("\n%s\n", cmd.summary)
			cmd.flags.PrintDefaults()
		}
	}

	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	var selected *command
	for _, cmd := range commands {
		if cmd.flags.Name() == flag.Arg(0) {
			selected = cmd
		}
	}
	if selected == nil {
		fmt.Printf("\n%s is not a homeboard command\n", flag.Arg(0))
		flag.Usage()
		os.Exit(1)
	}
	selected.flags.Parse(flag.Args()[1:])
	if selected.flags.NArg() > 0 {
		fmt.Printf("\n\"%s %s\" accepts no arguments\n", mainCommand, selected.flags.Name())
		selected.flags.Usage()
		os.Exit(1)
	}

	if *debugMode {
		logrus.SetLevel(logrus.DebugLevel)
		logrus.SetFormatter(&logrus.TextFormatter{ForceColors: true, FullTimestamp: true, TimestampFormat: time.RFC3339Nano})
		logrus.Printf("Debug mode activated")
	}

	selected.run(*configDir, *debugMode)
}

func runServer(configDir string, debugMode bool, simulationMode bool) {
	serverApp := srv.NewServerApp(configDir, debugMode, simulationMode)

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGABRT, syscall.SIGHUP, syscall.SIGUSR1)

	serverApp.Start()

	sig := <-ch
	logrus.Infof("Received signal: %v", sig)
	serverApp.Stop(sig == syscall.SIGUSR1)
}

func loadParam(configDir string) *config.ServerParam {
	param, err := config.ReadServerParam(configDir)
	if err != nil {
		logrus.Fatalf("Unable to read param file in %s: %v\n", configDir, err)
	}
	return param
}

func printRoutes(param *config.ServerParam) {
	table, err := param.Routes.Table()
	if err != nil {
		logrus.Fatalf("Unable to build route table: %v\n", err)
	}
	fmt.Printf("Match mode: %s\n\n", table.Mode())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TOPIC\tKIND\tLABEL")
	for _, r := range table.Routes() {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Topic, r.Kind, r.Room)
	}
	w.Flush()
}

func printLayout(param *config.ServerParam) {
	bounds := image.Rect(0, 0, param.Panel.Width, param.Panel.Height)
	layout := region.NewLayout(bounds)
	fmt.Printf("Panel %dx%d, face %s, line height %d\n\n", bounds.Dx(), bounds.Dy(), layout.Face, layout.Face.LineHeight())
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "REGION\tRECTANGLE\tWIDEST TEXT FITS")
	for _, name := range region.Names {
		r := layout.Regions[name]
		fmt.Fprintf(w, "%s\t%v\t%t\n", name, r, layout.Face.Fits(r.Size(), region.Widest[name]))
	}
	w.Flush()
}
