// Command inspect dumps stored direct messages as a table, for operators
// poking at a badger directory. Open the DB read-only so a running daemon
// keeps its lock.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"portal-dm/repositories"
)

func main() {
	dbPath := flag.String("db", "./data/badger", "Path to badger DB")
	prefix := flag.String("prefix", "msg:", "Prefix to scan")
	unreadOnly := flag.Bool("unread", false, "Only show unread messages")
	flag.Parse()

	opts := badger.DefaultOptions(*dbPath).
		WithReadOnly(true).
		WithBypassLockGuard(true).
		WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	var raws [][]byte
	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()

			// Skip the secondary user index entries, they only hold keys
			if strings.HasPrefix(string(item.Key()), "usr:") {
				continue
			}

			if err := item.Value(func(v []byte) error {
				raws = append(raws, append([]byte(nil), v...))
				return nil
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Fatal("Error while scanning Badger: ", err)
	}

	messages, err := repositories.ToMessages(raws)
	if err != nil {
		log.Fatal("Error while decoding messages: ", err)
	}

	color.Cyan.Printf("%d messages under prefix %q\n", len(messages), *prefix)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Sender", "Receiver", "At", "Read", "Content"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, m := range messages {
		if *unreadOnly && m.Read {
			continue
		}
		read := color.Red.Sprint("✗")
		if m.Read {
			read = color.Green.Sprint("✓")
		}
		table.Append([]string{
			m.ID.String(),
			m.SenderID,
			m.ReceiverID,
			m.CreatedAt.Format("2006-01-02 15:04:05"),
			read,
			fmt.Sprintf("%.60s", m.Content),
		})
	}
	table.Render()
}
