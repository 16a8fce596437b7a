package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-campus-sos/internal/client"
	"github.com/mr1hm/go-campus-sos/internal/config"
	"github.com/mr1hm/go-campus-sos/internal/logging"
	"github.com/mr1hm/go-campus-sos/internal/models"
)

func main() {
	_ = godotenv.Load()

	mode := flag.String("mode", "sos", "sos (submit an alert) or dashboard (admin live view)")
	lat := flag.Float64("lat", 0, "latitude for this terminal")
	lng := flag.Float64("lng", 0, "longitude for this terminal")
	userID := flag.String("user-id", "user123", "submitter id")
	userName := flag.String("user-name", "John Student", "submitter name")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	apiClient := client.NewAPIClient(cfg.Client.ServerURL, cfg.Admin.Password)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	switch *mode {
	case "sos":
		runSOS(ctx, cfg, apiClient, *lat, *lng, client.User{ID: *userID, Name: *userName})
	case "dashboard":
		runDashboard(ctx, apiClient)
	default:
		logging.Fatalf("unknown mode: %s", *mode)
	}
}

func runSOS(ctx context.Context, cfg *config.Config, apiClient *client.APIClient, lat, lng float64, user client.User) {
	queue := client.NewQueue(cfg.Client.QueuePath)
	provider := client.StaticProvider{Location: models.Location{Lat: lat, Lng: lng}}
	acquirer := client.NewAcquirer(provider, cfg.Client.LocationTimeout)
	ctrl := client.NewController(acquirer, queue, apiClient, user)

	// Startup flush: anything queued from an earlier offline run.
	if res := ctrl.HandleOnline(ctx); res.Sent > 0 {
		fmt.Printf("Sent %d previously queued alert(s)\n", res.Sent)
	}

	if err := ctrl.Trigger(ctx); err != nil {
		slog.Error("could not start submission", "error", err)
		fmt.Println("We couldn't get your location. Enable GPS / pass -lat and -lng, then try again.")
		return
	}

	fmt.Print("Send an emergency SOS alert with your location? [y/N]: ")
	reader := bufio.NewReader(os.Stdin)
	answer, _ := reader.ReadString('\n')
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		_ = ctrl.Cancel()
		fmt.Println("Cancelled.")
		return
	}

	outcome, err := ctrl.Confirm(ctx)
	if err != nil {
		slog.Error("submission failed", "error", err)
		return
	}
	if outcome.Queued {
		fmt.Println("You appear to be offline. Your SOS is queued and will send automatically next run.")
		return
	}
	fmt.Printf("SOS sent. Report id: %s\n", outcome.Alert.ID)
}

type terminalBeeper struct{}

func (terminalBeeper) Beep() {
	fmt.Print("\a")
}

func runDashboard(ctx context.Context, apiClient *client.APIClient) {
	dash := client.NewDashboard(terminalBeeper{})
	defer dash.Close()
	dash.SetAdminSession(true)
	dash.SetPresented(true)

	alerts, err := apiClient.ListAlerts(ctx)
	if err != nil {
		logging.Fatalf("failed to fetch alerts: %v", err)
	}
	dash.Sync(alerts)
	printAlerts(dash.Alerts())

	events, err := apiClient.Subscribe(ctx)
	if err != nil {
		logging.Fatalf("failed to subscribe: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				slog.Warn("event stream closed")
				return
			}
			dash.Apply(ev)
			fmt.Printf("-- %s --\n", ev.Kind)
			printAlerts(dash.Alerts())
		case <-quit:
			return
		}
	}
}

func printAlerts(alerts []models.Alert) {
	if len(alerts) == 0 {
		fmt.Println("No SOS reports.")
		return
	}
	for _, a := range alerts {
		fmt.Printf("[%s] %-9s %-10s %s (%.4f, %.4f) %s\n",
			a.CreatedAt.Local().Format("15:04:05"), a.Status, a.Category,
			a.SubmitterName, a.Location.Lat, a.Location.Lng, a.ID)
	}
}
