// Command main runs the database seeder for Amber.
package main

import (
	"flag"
	"log"

	"amber/internal/config"
	"amber/internal/database"
	"amber/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 50, "Number of users to create")
	numPosts := flag.Int("posts", 200, "Number of posts to create")
	comments := flag.Int("comments", 2, "Comments per post")
	reviews := flag.Int("reviews", 1, "Reviews written by each user")
	maxDays := flag.Int("days", 90, "Spread post dates over this many days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing it")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d posts, clean=%v\n", *numUsers, *numPosts, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.IsProduction() {
		log.Fatal("❌ Refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	res, err := seed.Seed(db, seed.Options{
		NumUsers:        *numUsers,
		NumPosts:        *numPosts,
		CommentsPerPost: *comments,
		ReviewsPerUser:  *reviews,
		MaxDays:         *maxDays,
		ShouldClean:     *shouldClean,
		DryRun:          *dryRun,
		FastHash:        true,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✨ All done! %d users, %d posts, %d comments, %d reviews.", res.Users, res.Posts, res.Comments, res.Reviews)
	log.Printf("📧 All test users have the password: %s", seed.DemoPassword)
}
