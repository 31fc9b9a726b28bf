package telegram

import (
	"fmt"
	"log"
	"sort"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const helpText = `Send a voice note or type a question to get response options.

/history - show the current conversation
/reset - start the conversation over
/kb - list knowledge base categories
/kb_show CATEGORY - list a category's options
/kb_add CATEGORY - add a category
/kb_rename OLD NEW - rename a category
/kb_remove CATEGORY - remove a category
/kb_item CATEGORY OPTION - add an option
/kb_drop CATEGORY OPTION - remove an option
/kb_reset - restore the shipped knowledge base`

func (b *Bot) handleCommand(msg *tgbotapi.Message) {
	sess := b.session(msg.Chat.ID)
	args := strings.Fields(msg.CommandArguments())

	switch msg.Command() {
	case "start", "help":
		b.sendMessage(msg.Chat.ID, helpText)

	case "history":
		b.sendMessage(msg.Chat.ID, historyText(sess.engine.History()))

	case "reset":
		sess.engine.ResetConversation()
		b.mu.Lock()
		sess.question = ""
		sess.options = nil
		b.mu.Unlock()
		b.sendMessage(msg.Chat.ID, "Conversation cleared.")

	case "kb":
		base := b.editor.Begin()
		names := make([]string, 0, len(base))
		for name := range base {
			names = append(names, name)
		}
		sort.Strings(names)
		if len(names) == 0 {
			b.sendMessage(msg.Chat.ID, "The knowledge base is empty.")
			return
		}
		b.sendMessage(msg.Chat.ID, "Categories: "+strings.Join(names, ", "))

	case "kb_show":
		if len(args) != 1 {
			b.sendMessage(msg.Chat.ID, "Usage: /kb_show CATEGORY")
			return
		}
		options, found := b.editor.Begin().Lookup(args[0])
		if !found {
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("No category named %q.", args[0]))
			return
		}
		if len(options) == 0 {
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("%s has no options yet.", args[0]))
			return
		}
		b.sendMessage(msg.Chat.ID, args[0]+": "+strings.Join(options, ", "))

	case "kb_add":
		if len(args) != 1 {
			b.sendMessage(msg.Chat.ID, "Usage: /kb_add CATEGORY")
			return
		}
		b.editor.Begin()
		if !b.editor.AddCategory(args[0]) {
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Category %q already exists.", args[0]))
			return
		}
		b.saveKnowledge(msg.Chat.ID, fmt.Sprintf("Added category %s.", args[0]))

	case "kb_rename":
		if len(args) != 2 {
			b.sendMessage(msg.Chat.ID, "Usage: /kb_rename OLD NEW")
			return
		}
		b.editor.Begin()
		if !b.editor.RenameCategory(args[0], args[1]) {
			b.sendMessage(msg.Chat.ID, "Rename failed: check that the old name exists and the new one is free.")
			return
		}
		b.saveKnowledge(msg.Chat.ID, fmt.Sprintf("Renamed %s to %s.", args[0], args[1]))

	case "kb_remove":
		if len(args) != 1 {
			b.sendMessage(msg.Chat.ID, "Usage: /kb_remove CATEGORY")
			return
		}
		b.editor.Begin()
		b.editor.RemoveCategory(args[0])
		b.saveKnowledge(msg.Chat.ID, fmt.Sprintf("Removed category %s.", args[0]))

	case "kb_item":
		if len(args) < 2 {
			b.sendMessage(msg.Chat.ID, "Usage: /kb_item CATEGORY OPTION")
			return
		}
		b.editor.Begin()
		item := strings.Join(args[1:], " ")
		if !b.editor.AddItem(args[0], item) {
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("No category named %q.", args[0]))
			return
		}
		b.saveKnowledge(msg.Chat.ID, fmt.Sprintf("Added %q to %s.", item, args[0]))

	case "kb_drop":
		if len(args) < 2 {
			b.sendMessage(msg.Chat.ID, "Usage: /kb_drop CATEGORY OPTION")
			return
		}
		b.editor.Begin()
		b.editor.RemoveItem(args[0], strings.Join(args[1:], " "))
		b.saveKnowledge(msg.Chat.ID, "Option removed.")

	case "kb_reset":
		b.editor.Reset()
		b.sendMessage(msg.Chat.ID, "Knowledge base restored to the shipped set.")

	default:
		b.sendMessage(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

// saveKnowledge persists staged edits. A failed save reverts them so the
// next command starts from the persisted state.
func (b *Bot) saveKnowledge(chatID int64, ok string) {
	if err := b.editor.Save(); err != nil {
		log.Printf("failed to save knowledge base: %v", err)
		b.editor.Cancel()
		b.sendMessage(chatID, "Saving the knowledge base failed, changes reverted.")
		return
	}
	b.sendMessage(chatID, ok)
}
