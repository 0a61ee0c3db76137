package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/deploymenttheory/go-api-soap-client/apiclient"
	"github.com/deploymenttheory/go-api-soap-client/authenticationhandler"
	"github.com/deploymenttheory/go-api-soap-client/environment"
	"github.com/deploymenttheory/go-api-soap-client/logger"
	"github.com/deploymenttheory/go-api-soap-client/response"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

// probeResult tallies the outcome of every call.
type probeResult struct {
	mu        sync.Mutex
	succeeded int
	faulted   int
	userName  string
}

// Run parses args, builds the client stack and calls GetUser Workers x Iterations times.
// Faults are reported and counted; any other error stops the run.
func Run(ctx context.Context, args []string, in io.Reader, out io.Writer) error {
	options := &Options{}
	if _, err := flags.ParseArgs(options, args); err != nil {
		return err
	}
	if options.Workers < 1 || options.Iterations < 1 {
		return fmt.Errorf("workers and iterations must be at least 1")
	}

	if err := godotenv.Load(options.EnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", options.EnvFile, err)
	}

	config := &apiclient.ClientConfig{}
	if options.ConfigFile != "" {
		loaded, err := apiclient.LoadConfigFromFile(options.ConfigFile)
		if err != nil {
			return err
		}
		config = loaded
	}
	config, err := apiclient.LoadConfigFromEnv(config)
	if err != nil {
		return err
	}

	flow := authenticationhandler.NewConsoleFlow(out, in)
	var factory *apiclient.ClientFactory
	if options.Trace {
		factory, err = apiclient.BuildClientFactoryWithLogger(ctx, *config, flow, logger.NewListenerLogger(traceListener(out), logger.LogLevelDebug))
	} else {
		factory, err = apiclient.BuildClientFactory(ctx, *config, flow)
	}
	if err != nil {
		return err
	}
	client, err := factory.CreateClient(environment.CustomerManagement, &apiclient.ClientOptions{EndpointURL: options.Endpoint})
	if err != nil {
		return err
	}
	defer client.Close()

	request := &getUserRequest{}
	if options.UserID != 0 {
		request.UserID = &options.UserID
	}

	result := &probeResult{}
	group, groupCtx := errgroup.WithContext(ctx)
	for w := 0; w < options.Workers; w++ {
		group.Go(func() error {
			for i := 0; i < options.Iterations; i++ {
				if err := probeOnce(groupCtx, client, request, result, out); err != nil {
					return err
				}
			}
			return nil
		})
	}
	runErr := group.Wait()

	fmt.Fprintf(out, "GetUser against %s: %d succeeded, %d faulted\n", client.Endpoint(), result.succeeded, result.faulted)
	if result.userName != "" {
		fmt.Fprintf(out, "Signed in as %s\n", result.userName)
	}
	if metrics, ok := client.Metrics(); ok {
		fmt.Fprintf(out, "Requests %d, throttled %d, average response %s, permit wait %s\n",
			metrics.TotalRequests, metrics.TotalThrottled, metrics.AverageResponseTime, metrics.PermitWaitTime)
	}
	return runErr
}

// traceListener writes each log entry as one line. Writes are serialized since calls log concurrently.
func traceListener(out io.Writer) logger.Listener {
	var mu sync.Mutex
	return func(message string, source string, level logger.LogLevel) {
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintf(out, "[%s] %s: %s\n", level, source, message)
	}
}

func probeOnce(ctx context.Context, client *apiclient.ServiceClient, request *getUserRequest, result *probeResult, out io.Writer) error {
	var reply getUserResponse
	err := client.Call(ctx, "GetUser", request, &reply)

	result.mu.Lock()
	defer result.mu.Unlock()
	if err == nil {
		result.succeeded++
		result.userName = reply.User.UserName
		return nil
	}
	var fault *response.Fault
	if !errors.As(err, &fault) {
		return err
	}
	result.faulted++
	fmt.Fprintf(out, "fault: %v\n", err)
	if detail, ok := response.GetFaultDetail(err); ok {
		fmt.Fprintf(out, "detail: %s\n", detail)
	}
	return nil
}
