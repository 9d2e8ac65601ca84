// Package i18n holds the bot's user-facing message catalog. Ukrainian is
// the base locale; English is a full translation. Lookups fall back to
// Ukrainian for any other locale.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. Every user-visible bot reply goes through one of these.
const (
	KeyStart            = "bot.start"
	KeyMemberCounted    = "member.counted"
	KeyMemberKnown      = "member.known"
	KeyGroupSummary     = "group.summary"
	KeyGroupList        = "group.list.header"
	KeyGroupListEmpty   = "group.list.empty"
	KeyGroupNotFound    = "group.not_found"
	KeyGroupDeleted     = "group.deleted"
	KeyNoPermission     = "admin.no_permission"
	KeyAdminAdded       = "admin.added"
	KeyAdminRemoved     = "admin.removed"
	KeySuperAdminAdded  = "admin.super_added"
	KeyAdminUnknownUser = "admin.unknown_user"
	KeyUsageDelete      = "usage.delete_group"
	KeyUsageSpecific    = "usage.specific_group"
	KeyUsageAdmin       = "usage.admin"
	KeyInternalError    = "bot.internal_error"
)

var (
	// Ukrainian is the base locale.
	Ukrainian = language.Ukrainian
	English   = language.English
)

type entry struct {
	key string
	uk  string
	en  string
}

var catalog = []entry{
	{KeyStart,
		"Привіт! Я рахую унікальних учасників групи. Додайте мене до групи, і я почну лічбу.",
		"Hi! I count unique group members. Add me to a group and I will start counting."},
	{KeyMemberCounted,
		"Вітаємо в групі! Ви учасник номер %d.",
		"Welcome to the group! You are member number %d."},
	{KeyMemberKnown,
		"З поверненням! Ви вже були пораховані.",
		"Welcome back! You have already been counted."},
	{KeyGroupSummary,
		"Група: %s\nУнікальних учасників: %d\nМаксимум учасників: %d",
		"Group: %s\nUnique members: %d\nPeak member count: %d"},
	{KeyGroupList,
		"Активні групи:",
		"Active groups:"},
	{KeyGroupListEmpty,
		"Я поки не відстежую жодної групи.",
		"I am not tracking any groups yet."},
	{KeyGroupNotFound,
		"Групу «%s» не знайдено.",
		"Group %q was not found."},
	{KeyGroupDeleted,
		"Групу «%s» та її лічильники видалено.",
		"Group %q and its counters have been deleted."},
	{KeyNoPermission,
		"У вас немає прав для цієї команди.",
		"You do not have permission to run this command."},
	{KeyAdminAdded,
		"Адміністратора %s додано.",
		"Admin %s has been added."},
	{KeyAdminRemoved,
		"Адміністратора %s видалено.",
		"Admin %s has been removed."},
	{KeySuperAdminAdded,
		"Суперадміністратора %s додано.",
		"Super admin %s has been added."},
	{KeyAdminUnknownUser,
		"Користувач %s ще не писав боту, тому я не знаю його ідентифікатора.",
		"User %s has not messaged the bot yet, so their id is unknown."},
	{KeyUsageDelete,
		"Використання: /delete_group <назва або chat id>",
		"Usage: /delete_group <title or chat id>"},
	{KeyUsageSpecific,
		"Використання: /specific_group <назва або chat id>",
		"Usage: /specific_group <title or chat id>"},
	{KeyUsageAdmin,
		"Використання: /add_admin <user id або @username>",
		"Usage: /add_admin <user id or @username>"},
	{KeyInternalError,
		"Щось пішло не так. Спробуйте пізніше.",
		"Something went wrong. Please try again later."},
}

func init() {
	for _, e := range catalog {
		message.SetString(Ukrainian, e.key, e.uk)
		message.SetString(English, e.key, e.en)
	}
}

// Translator renders catalog messages for one locale.
type Translator struct {
	printer *message.Printer
}

// New returns a translator for the given tag.
func New(tag language.Tag) *Translator {
	return &Translator{printer: message.NewPrinter(tag)}
}

// ForLocale picks a translator from a Telegram language_code. Unknown or
// empty codes fall back to Ukrainian.
func ForLocale(locale string) *Translator {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return New(Ukrainian)
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return New(Ukrainian)
	}
	switch base, _ := tag.Base(); base.String() {
	case "en":
		return New(English)
	case "uk":
		return New(Ukrainian)
	default:
		return New(Ukrainian)
	}
}

// Sprintf renders a catalog message with arguments.
func (t *Translator) Sprintf(key string, args ...any) string {
	return t.printer.Sprintf(key, args...)
}
