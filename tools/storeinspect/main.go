// Command storeinspect dumps the server's Badger store as a table, for
// checking what the dispatcher really persisted after an interception run.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"mitm-lab/domain"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

func main() {
	dbPath := flag.String("db", "data/server", "Path to the server's badger DB")
	// Messages by default; use "account:" or "session:" (or "" for everything).
	prefix := flag.String("prefix", "msg:", "Key prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			key := string(item.Key())

			err := item.Value(func(v []byte) error {
				table.Append([]string{key, kindOf(key), describe(key, v)})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func kindOf(key string) string {
	switch {
	case strings.HasPrefix(key, "account:"):
		return "ACCOUNT"
	case strings.HasPrefix(key, "session:"):
		return "SESSION"
	case strings.HasPrefix(key, "msg:"):
		return "MESSAGE"
	}
	return "UNKNOWN"
}

// describe renders the stored JSON document as a one-line summary; a value
// that fails to parse is shown raw instead of aborting the scan.
func describe(key string, value []byte) string {
	switch {
	case strings.HasPrefix(key, "account:"):
		var account domain.Account
		if err := json.Unmarshal(value, &account); err != nil {
			return string(value)
		}
		digest := account.PasswordHash
		if len(digest) > 12 {
			digest = digest[:12]
		}
		return fmt.Sprintf("user=%s sha256=%s...", account.Username, digest)
	case strings.HasPrefix(key, "session:"):
		var session domain.Session
		if err := json.Unmarshal(value, &session); err != nil {
			return string(value)
		}
		return fmt.Sprintf("user=%s", session.Username)
	case strings.HasPrefix(key, "msg:"):
		var message domain.Message
		if err := json.Unmarshal(value, &message); err != nil {
			return string(value)
		}
		return fmt.Sprintf("%s from=%s text=%q",
			time.Unix(message.Timestamp, 0).Format("15:04:05"), message.Sender, message.Text)
	}
	return string(value)
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true).
		WithValueLogFileSize(10 * 1024 * 1024)

	return badger.Open(opts)
}
