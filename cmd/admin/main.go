// Package main provides admin management utilities for Amber.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"

	"amber/internal/bootstrap"
	"amber/internal/config"
	"amber/internal/database"
	"amber/internal/models"
	"amber/internal/service"
)

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  go run ./cmd/admin promote <user_id>                         - Promote user to admin")
	fmt.Println("  go run ./cmd/admin demote <user_id>                          - Demote user from admin")
	fmt.Println("  go run ./cmd/admin list-admins                               - List all admins")
	fmt.Println("  go run ./cmd/admin create-admin <email> <password> [username] - Create an admin account")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	admins := bootstrap.NewAdminService(cfg, db, nil)
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "promote", "demote":
		if len(os.Args) < 3 {
			fmt.Printf("Usage: go run ./cmd/admin %s <user_id>\n", command)
			os.Exit(1)
		}
		setAdmin(ctx, admins, os.Args[2], command == "promote")

	case "list-admins":
		listAdmins(ctx, admins)

	case "create-admin":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run ./cmd/admin create-admin <email> <password> [username]")
			os.Exit(1)
		}
		in := service.NewAccountInput{Email: os.Args[2], Password: os.Args[3], IsAdmin: true}
		if len(os.Args) > 4 {
			in.Username = os.Args[4]
		}
		createAdmin(ctx, admins, in)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func parseUserID(raw string) uint {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		fmt.Printf("Invalid user ID: %s\n", raw)
		os.Exit(1)
	}
	return uint(id)
}

func setAdmin(ctx context.Context, admins *service.AdminService, rawID string, isAdmin bool) {
	id := parseUserID(rawID)
	user, err := admins.GetUser(ctx, id)
	if err != nil {
		exitOnAppError(err, fmt.Sprintf("User with ID %d not found", id))
	}

	verb := "promoted"
	if !isAdmin {
		verb = "demoted"
	}
	if user.IsAdmin == isAdmin {
		fmt.Printf("User %s (ID: %d) is already %s\n", user.Username, user.ID, verb)
		return
	}

	if _, err := admins.SetAdmin(ctx, id, isAdmin); err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}
	fmt.Printf("✅ Successfully %s %s (ID: %d)\n", verb, user.Username, user.ID)
}

func listAdmins(ctx context.Context, admins *service.AdminService) {
	list, err := admins.ListAdmins(ctx)
	if err != nil {
		log.Fatalf("Failed to fetch admins: %v", err)
	}

	if len(list) == 0 {
		fmt.Println("No admins found in the system")
		return
	}

	fmt.Println("\n📋 Current Admins:")
	fmt.Println("─────────────────────────────────────")
	for _, admin := range list {
		fmt.Printf("ID: %d | Username: %s | Email: %s\n", admin.ID, admin.Username, admin.Email)
	}
	fmt.Println("─────────────────────────────────────")
}

func createAdmin(ctx context.Context, admins *service.AdminService, in service.NewAccountInput) {
	user, err := admins.CreateUser(ctx, in)
	if err != nil {
		exitOnAppError(err, "")
	}
	fmt.Printf("✅ Created admin %s (ID: %d, %s)\n", user.Username, user.ID, user.Email)
}

// exitOnAppError prints validation, conflict and not-found errors for the operator and treats
// everything else as fatal.
func exitOnAppError(err error, notFound string) {
	appErr := models.AsAppError(err)
	switch {
	case appErr.Code == models.CodeNotFound && notFound != "":
		fmt.Println(notFound)
	case appErr.Code == models.CodeInternal:
		log.Fatalf("Database error: %v", err)
	case len(appErr.Details) > 0:
		for _, d := range appErr.Details {
			fmt.Println(d)
		}
	default:
		fmt.Println(appErr.Message)
	}
	os.Exit(1)
}
