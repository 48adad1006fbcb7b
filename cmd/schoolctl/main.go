package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/pkg/config"
	"github.com/noah-isme/school-portal-api/pkg/database"
	"github.com/noah-isme/school-portal-api/pkg/logger"
)

const usage = `schoolctl manages a school portal deployment.

Usage:
  schoolctl migrate [up|down|status|version|redo|reset]
  schoolctl seed
  schoolctl resetpassword -username NAME [-password VALUE]
  schoolctl adduser -username NAME -name "FULL NAME" -role ADMIN|LECTURER|STUDENT [-email E] [-department NAME] [-level L]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr, os.Args[1], os.Args[2:]); err != nil {
		logr.Error("command failed", zap.String("command", os.Args[1]), zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, logr *zap.Logger, command string, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	switch command {
	case "migrate":
		direction := "up"
		if len(args) > 0 {
			direction = args[0]
		}
		if err := database.Migrate(db.DB, direction, args[min(1, len(args)):]...); err != nil {
			return err
		}
		logr.Info("migration finished", zap.String("direction", direction))
		return nil
	case "seed":
		if err := database.MigrateUp(db.DB); err != nil {
			return err
		}
		seeder := &Seeder{
			Users:         repository.NewUserRepository(db),
			Departments:   repository.NewDepartmentRepository(db),
			Courses:       repository.NewCourseRepository(db),
			Assignments:   repository.NewAssignmentRepository(db),
			AdminPassword: cfg.Seed.AdminPassword,
			AdminEmail:    cfg.Seed.AdminEmail,
			Logger:        logr,
		}
		return seeder.Run(ctx)
	case "resetpassword":
		return resetPassword(ctx, repository.NewUserRepository(db), args, os.Stdin, os.Stdout)
	case "adduser":
		return addUser(ctx, repository.NewUserRepository(db), repository.NewDepartmentRepository(db), args, os.Stdin, os.Stdout)
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}
