//go:build ignore

// Resets a participant's password in place:
//
//	go run reset_participant_password.go -db data/practicetime.db -user admin
package main

import (
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

func main() {
	var (
		dbPath   = flag.String("db", "./data/practicetime.db", "path to sqlite database")
		username = flag.String("user", "admin", "participant to reset")
		password = flag.String("password", "", "new password (default: generated)")
	)
	flag.Parse()

	if *password == "" {
		buf := make([]byte, 12)
		if _, err := rand.Read(buf); err != nil {
			log.Fatal(err)
		}
		*password = base64.RawURLEncoding.EncodeToString(buf)
	}
	if len(*password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal(err)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	result, err := db.Exec("UPDATE participants SET password_hash = ? WHERE username = ?", string(hash), *username)
	if err != nil {
		log.Fatal(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		log.Fatal(err)
	}

	if rows == 0 {
		fmt.Printf("No participant %q found. Creating one...\n", *username)
		_, err = db.Exec(`
			INSERT INTO participants (id, username, password_hash, created_at)
			VALUES (?, ?, ?, ?)
		`, uuid.NewString(), *username, string(hash), time.Now().Unix())
		if err != nil {
			log.Fatal(err)
		}
	} else {
		// existing tokens keep working until they expire otherwise
		if _, err := db.Exec(`
			DELETE FROM auth_sessions
			WHERE participant_id IN (SELECT id FROM participants WHERE username = ?)
		`, *username); err != nil {
			log.Fatal(err)
		}
		fmt.Printf("Updated %d row(s)\n", rows)
	}

	fmt.Println("========================================")
	fmt.Println("Password has been reset!")
	fmt.Printf("Username: %s\n", *username)
	fmt.Printf("Password: %s\n", *password)
	fmt.Println("========================================")
}
