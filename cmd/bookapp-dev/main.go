package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/testcontainers/testcontainers-go/modules/clickhouse"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"

	"bookapp/internal/activity/ch"
	"bookapp/internal/app"
	"bookapp/internal/cli"
)

func main() {
	ctx := context.Background()

	log.Println("Starting MongoDB testcontainer...")
	mongoContainer, err := mongodb.Run(ctx, "mongo:7.0")
	if err != nil {
		log.Fatalf("Failed to start MongoDB container: %v", err)
	}
	defer func() {
		log.Println("Stopping MongoDB container...")
		if err := mongoContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	mongoURI, err := mongoContainer.ConnectionString(ctx)
	if err != nil {
		log.Fatalf("Failed to get MongoDB connection string: %v", err)
	}
	log.Printf("MongoDB started at %s", mongoURI)

	log.Println("Starting ClickHouse testcontainer...")
	clickhouseContainer, err := clickhouse.Run(ctx,
		"clickhouse/clickhouse-server:latest",
		clickhouse.WithUsername("default"),
		clickhouse.WithPassword("devpassword"),
		clickhouse.WithDatabase("default"),
	)
	if err != nil {
		log.Fatalf("Failed to start ClickHouse container: %v", err)
	}
	defer func() {
		log.Println("Stopping ClickHouse container...")
		if err := clickhouseContainer.Terminate(ctx); err != nil {
			log.Printf("Failed to terminate container: %v", err)
		}
	}()

	host, err := clickhouseContainer.Host(ctx)
	if err != nil {
		log.Fatalf("Failed to get container host: %v", err)
	}
	port, err := clickhouseContainer.MappedPort(ctx, "9000/tcp")
	if err != nil {
		log.Fatalf("Failed to get container port: %v", err)
	}
	log.Printf("ClickHouse started at %s:%s", host, port.Port())

	if err := migrateClickHouse(ctx, host, port.Int()); err != nil {
		log.Fatalf("Failed to migrate ClickHouse: %v", err)
	}

	// Set environment variables for the application
	os.Setenv("MONGO_URI", mongoURI)
	os.Setenv("MONGO_DATABASE", "bookapp_dev")
	os.Setenv("CLICKHOUSE_HOST", host)
	os.Setenv("CLICKHOUSE_PORT", port.Port())
	os.Setenv("CLICKHOUSE_DATABASE", "default")
	os.Setenv("CLICKHOUSE_USER", "default")
	os.Setenv("CLICKHOUSE_PASSWORD", "devpassword")
	os.Setenv("CLICKHOUSE_USE_TLS", "false")
	if os.Getenv("JWT_SECRET") == "" {
		os.Setenv("JWT_SECRET", "dev-secret")
	}
	if os.Getenv("USE_MOCK_DB") == "" {
		os.Setenv("USE_MOCK_DB", "true")
	}

	application, err := app.New(ctx)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer application.Shutdown(ctx)

	in := bufio.NewReader(os.Stdin)
	runShell(ctx, in, cli.New(application, in, os.Stdout))
}

func migrateClickHouse(ctx context.Context, host string, port int) error {
	db := ch.OpenDB(ch.Options(host, port, "default", "default", "devpassword", false))
	defer db.Close()

	provider, err := ch.NewMigrationProvider(db)
	if err != nil {
		return err
	}
	_, err = provider.Up(ctx)
	return err
}

// runShell reads commands from stdin until exit, EOF or an interrupt. The
// reader is shared with the CLI so password prompts read the same stream.
func runShell(ctx context.Context, in *bufio.Reader, c *cli.CLI) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Println("Development shell. Type a command such as \"books list\", \"help\" or \"exit\".")
	for ctx.Err() == nil {
		fmt.Print("\n> ")
		line, err := in.ReadString('\n')
		if err != nil && line == "" {
			return
		}
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		if args[0] == "exit" || args[0] == "quit" {
			fmt.Println("Goodbye!")
			return
		}
		c.Execute(ctx, args)
	}
	log.Println("Received shutdown signal")
}
