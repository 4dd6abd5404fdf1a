package main

import (
	"context"
	"fmt"
	"io"
	"os"

	awslambda "github.com/aws/aws-lambda-go/lambda"
	"github.com/sirupsen/logrus"

	"feed-proxy/internal/config"
	"feed-proxy/internal/handlers"
	"feed-proxy/internal/relay"
	"feed-proxy/pkg/lambda"
	"feed-proxy/pkg/server"
)

func main() {
	// `relay <url>` fetches once and prints, for checking a feed by hand
	if len(os.Args) == 2 {
		cfg, err := config.GetOptimizedConfig()
		if err != nil {
			logrus.Fatalf("Failed to load configuration: %v", err)
		}
		fetcher := relay.NewHTTPFetcher(relay.WithTimeout(cfg.Relay.FetchTimeout))
		os.Exit(runCLI(context.Background(), fetcher, os.Args[1], os.Stdout))
	}

	cfg, err := config.LoadManaged()
	if err != nil {
		logrus.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := server.NewContainer(cfg, relay.Managed)
	if err != nil {
		logrus.Fatalf("Failed to initialize container: %v", err)
	}

	serverless := config.GetServerlessConfig()
	container.Logger.WithFields(logrus.Fields{
		"mode":     config.GetDeploymentMode(),
		"function": serverless.FunctionName,
		"region":   serverless.Region,
	}).Info("Starting relay function")

	relayHandler := handlers.NewRelayHandler(container.Relay)
	dispatcher := lambda.NewDispatcher(relayHandler.HandleRelay, container.Logger.WithField("component", "lambda"))

	awslambda.Start(dispatcher.Invoke)
}

// runCLI prints the stripped body of url, or an empty line when the fetch fails.
// It always reports success.
func runCLI(ctx context.Context, fetcher relay.Fetcher, url string, out io.Writer) int {
	body, err := fetcher.Fetch(ctx, url)
	if err != nil {
		logrus.WithError(err).WithField("url", url).Warn("Fetch failed")
		body = ""
	}

	fmt.Fprintln(out, body)
	return 0
}
