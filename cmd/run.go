// cmd/run.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/solenoidlabs/webpilot/api/schemas"
	"github.com/solenoidlabs/webpilot/internal/annotate"
	"github.com/solenoidlabs/webpilot/internal/browser"
	"github.com/solenoidlabs/webpilot/internal/config"
	"github.com/solenoidlabs/webpilot/internal/engine"
	"github.com/solenoidlabs/webpilot/internal/observability"
	"github.com/solenoidlabs/webpilot/internal/provider"
	"github.com/solenoidlabs/webpilot/internal/recorder"
	"github.com/solenoidlabs/webpilot/internal/runner"
	"github.com/solenoidlabs/webpilot/internal/state"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newRunCmd creates and configures the `run` command.
func newRunCmd() *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run [start-url]",
		Short: "Executes one or more browser tasks against the given application",
		Args:  cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			// Bind override flags so they take precedence over the config
			// file and environment.
			if err := viper.BindPFlag("engine.max_steps", cmd.Flags().Lookup("max-steps")); err != nil {
				return err
			}
			if err := viper.BindPFlag("browser.headless", cmd.Flags().Lookup("headless")); err != nil {
				return err
			}
			return viper.BindPFlag("runner.concurrency", cmd.Flags().Lookup("concurrency"))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			logger := observability.GetLogger()

			cfg, err := config.NewConfigFromViper(viper.GetViper())
			if err != nil {
				return err
			}

			tasks, err := collectTasks(cmd, args)
			if err != nil {
				return err
			}

			rec, closeRec, err := buildRecorder(ctx, cfg.Recorder, logger)
			if err != nil {
				return err
			}
			defer closeRec()

			gemini, err := provider.NewGeminiProvider(cfg.Provider, logger)
			if err != nil {
				return err
			}
			decider := provider.NewShared(gemini, cfg.Provider.RequestsPerSec, cfg.Provider.MaxInFlight)

			factory := newEngineFactory(cfg, decider, rec, logger)
			r := runner.New(factory, cfg.Runner, logger)

			results := r.RunAll(ctx, tasks)

			failed := 0
			for _, res := range results {
				if res.Status != schemas.TaskSuccess {
					failed++
				}
				line := fmt.Sprintf("%s  %-8s  %d step(s)", res.TaskID, res.Status, len(res.Steps))
				if res.Reason != "" {
					line += "  " + res.Reason
				}
				fmt.Println(line)
			}
			if cfg.Recorder.Backend == "file" {
				fmt.Printf("\nTraces written to %s\n", cfg.Recorder.OutputDir)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d task(s) did not succeed", failed, len(results))
			}
			return nil
		},
	}

	runCmd.Flags().StringP("objective", "O", "", "Natural-language objective for a single task.")
	runCmd.Flags().StringArrayP("param", "p", nil, "Task parameter as key=value. Repeatable.")
	runCmd.Flags().String("app", "", "Short name of the target application.")
	runCmd.Flags().StringP("tasks", "t", "", "Path to a JSON file holding a task batch.")

	runCmd.Flags().Int("max-steps", 0, "Step ceiling per task. (Overrides config/env)")
	runCmd.Flags().Bool("headless", true, "Run the browser headless. (Overrides config/env)")
	runCmd.Flags().IntP("concurrency", "j", 0, "Concurrent task limit in batch mode. (Overrides config/env)")

	return runCmd
}

// collectTasks assembles the batch from either a task file or the single-task
// flags. Tasks without an ID get one assigned.
func collectTasks(cmd *cobra.Command, args []string) ([]schemas.Task, error) {
	tasksPath, _ := cmd.Flags().GetString("tasks")

	var tasks []schemas.Task
	if tasksPath != "" {
		payload, err := os.ReadFile(tasksPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read task file: %w", err)
		}
		if err := json.Unmarshal(payload, &tasks); err != nil {
			return nil, fmt.Errorf("failed to parse task file: %w", err)
		}
		if len(tasks) == 0 {
			return nil, fmt.Errorf("task file %s holds no tasks", tasksPath)
		}
	} else {
		objective, _ := cmd.Flags().GetString("objective")
		if objective == "" {
			return nil, fmt.Errorf("either --objective or --tasks is required")
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("a start URL argument is required with --objective")
		}
		app, _ := cmd.Flags().GetString("app")
		rawParams, _ := cmd.Flags().GetStringArray("param")
		params, err := parseParams(rawParams)
		if err != nil {
			return nil, err
		}
		tasks = []schemas.Task{{
			Objective:  objective,
			App:        app,
			StartURL:   args[0],
			Parameters: params,
		}}
	}

	for i := range tasks {
		if tasks[i].ID == "" {
			tasks[i].ID = uuid.New().String()
		}
		if tasks[i].StartURL == "" && len(args) > 0 {
			tasks[i].StartURL = args[0]
		}
		if tasks[i].StartURL == "" {
			return nil, fmt.Errorf("task %s has no start URL", tasks[i].ID)
		}
		if !strings.HasPrefix(tasks[i].StartURL, "http://") && !strings.HasPrefix(tasks[i].StartURL, "https://") {
			tasks[i].StartURL = "https://" + tasks[i].StartURL
		}
	}
	return tasks, nil
}

func parseParams(raw []string) (map[string]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(raw))
	for _, pair := range raw {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --param %q, expected key=value", pair)
		}
		params[key] = value
	}
	return params, nil
}

func buildRecorder(ctx context.Context, cfg config.RecorderConfig, logger *zap.Logger) (schemas.Recorder, func(), error) {
	switch cfg.Backend {
	case "postgres":
		rec, err := recorder.NewPostgresRecorder(ctx, cfg.PostgresURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize postgres recorder: %w", err)
		}
		return rec, rec.Close, nil
	default:
		rec, err := recorder.NewFileRecorder(cfg.OutputDir, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize file recorder: %w", err)
		}
		return rec, func() {}, nil
	}
}

type executorFunc func(ctx context.Context, t schemas.Task) schemas.TaskResult

func (f executorFunc) Execute(ctx context.Context, t schemas.Task) schemas.TaskResult {
	return f(ctx, t)
}

// newEngineFactory wires a fresh browser session, detector and annotator for
// each task. The decision provider and the recorder are shared across tasks.
func newEngineFactory(cfg *config.Config, decider schemas.DecisionProvider, rec schemas.Recorder, logger *zap.Logger) runner.Factory {
	return func(ctx context.Context, t schemas.Task) (runner.Executor, func(), error) {
		session, err := browser.NewSession(ctx, cfg.Browser, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start browser session: %w", err)
		}
		if err := session.Navigate(ctx, t.StartURL); err != nil {
			session.Close()
			return nil, nil, fmt.Errorf("failed to open start page: %w", err)
		}

		deps := engine.Deps{
			Detector:  state.NewDetector(session.Inspector(), logger),
			Annotator: annotate.New(session, cfg.Engine.MaxElements, logger),
			Actuator:  session.Actuator(),
			Provider:  decider,
			Recorder:  rec,
		}
		eng := engine.New(cfg.Engine, deps, logger)

		exec := executorFunc(func(ctx context.Context, t schemas.Task) schemas.TaskResult {
			return eng.Run(ctx, t)
		})
		return exec, session.Close, nil
	}
}
