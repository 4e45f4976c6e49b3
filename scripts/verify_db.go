package main

import (
	"fmt"
	"log"
	"os"

	"github.com/glebarez/sqlite"
	"github.com/wwwzy/RagAgent/internal/storage"
	"gorm.io/gorm"
)

func main() {
	path := "ragagent.db"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	// Connect to the database
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	fmt.Println("--- Verifying RagAgent Database ---")

	// Verify ConversationTurns
	var turnsCount int64
	// We need to verify if the table exists first to avoid panic if migration didn't run
	if !db.Migrator().HasTable(&storage.ConversationTurn{}) {
		fmt.Println("Table 'conversation_turns' does not exist yet.")
	} else {
		db.Model(&storage.ConversationTurn{}).Count(&turnsCount)
		fmt.Printf("Total Conversation Turns: %d\n", turnsCount)

		if turnsCount > 0 {
			var turns []storage.ConversationTurn
			db.Order("created_at desc").Limit(5).Find(&turns)
			fmt.Println("Latest 5 Turns (Local Time):")
			for _, t := range turns {
				fmt.Printf("  [%s] %s (%s) Q: %s\n",
					t.CreatedAt.Local().Format("2006-01-02 15:04:05"), t.SessionID, t.Model, clip(t.Question))
			}
		}
	}

	fmt.Println("\n------------------------------------")

	// Verify AuditRecords
	var auditCount int64
	if !db.Migrator().HasTable(&storage.AuditRecord{}) {
		fmt.Println("Table 'audit_records' does not exist yet.")
	} else {
		db.Model(&storage.AuditRecord{}).Count(&auditCount)
		fmt.Printf("Total Audit Records: %d\n", auditCount)

		if auditCount > 0 {
			var recs []storage.AuditRecord
			db.Order("created_at desc").Limit(5).Find(&recs)
			fmt.Println("Latest 5 Audit Records (Local Time):")
			for _, r := range recs {
				fmt.Printf("  [%s] %s %s [%s] %s\n",
					r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.TraceID, r.Action, r.Status, clip(r.ErrorMessage))
			}
		}
	}
}

func clip(s string) string {
	if len(s) > 50 {
		return s[:47] + "..."
	}
	return s
}
