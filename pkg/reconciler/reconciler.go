// Package reconciler walks an export dataset row by row and decides what
// remote mutation, if any, each row requires. Rows are processed strictly
// sequentially, one fully resolved before the next, and every evaluated
// row emits exactly one checkpoint entry. That pairing is what makes a
// run resumable: a row is safe to skip on the next run if and only if it
// reached a success terminal state.
package reconciler

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/surjbayarea/actionsync/internal/fieldmap"
	"github.com/surjbayarea/actionsync/internal/utils/ptr"
	"github.com/surjbayarea/actionsync/pkg/checkpoint"
	"github.com/surjbayarea/actionsync/pkg/errors"
	"github.com/surjbayarea/actionsync/pkg/everyaction"
	"github.com/surjbayarea/actionsync/pkg/logging"
	"github.com/surjbayarea/actionsync/pkg/rows"
	"github.com/surjbayarea/actionsync/pkg/tagmap"
)

// MaxIndex is the default end of the run window when neither --end nor
// --count is given.
const MaxIndex = 1_000_000

// ContactDirectory is the remote capability the engine mutates through.
type ContactDirectory interface {
	Lookup(ctx context.Context, email, expand string) (*everyaction.Person, error)
	Create(ctx context.Context, fields everyaction.PersonFields) (*everyaction.Person, error)
	Update(ctx context.Context, vanID int, fields everyaction.PersonFields) error
	AppliedCodes(ctx context.Context, vanID int) ([]everyaction.CodeRef, error)
	ApplyActivistCode(ctx context.Context, codeID, vanID int) error
}

// TagResolver resolves one legacy tag to its canonical codes.
type TagResolver interface {
	Resolve(tag string) []everyaction.CodeRef
}

// Config is the immutable run configuration.
type Config struct {
	// Start and End bound the 1-based row window, inclusive.
	Start int
	End   int

	// Update re-pushes name/email/address/phone onto existing contacts.
	Update bool
	// DryRun suppresses every remote mutation; decisions and action
	// labels are identical to a live run.
	DryRun bool
	// Strict disables create-on-miss: unmatched rows log NOT_FOUND.
	Strict bool
}

// Validate checks the run window.
func (c Config) Validate() error {
	if c.Start < 1 {
		return &errors.ValidationError{Field: "start", Message: "first row must be at least 1"}
	}
	if c.End < c.Start {
		return &errors.ValidationError{Field: "end", Message: "end row precedes start row"}
	}
	return nil
}

// Stats summarizes one run for console reporting.
type Stats struct {
	Evaluated  int
	Skipped    int
	Created    int
	Updated    int
	NotFound   int
	Errors     int
	Mismatched int
}

// Engine reconciles rows against the remote directory.
type Engine struct {
	cfg    Config
	dir    ContactDirectory
	tags   TagResolver
	fields fieldmap.Map
	log    *checkpoint.Log
}

// New assembles an engine. The field map should already be pruned to the
// dataset's columns; tags may be nil when the dataset has no tag column.
func New(cfg Config, dir ContactDirectory, tags TagResolver, fields fieldmap.Map, log *checkpoint.Log) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		dir:    dir,
		tags:   tags,
		fields: fields,
		log:    log,
	}, nil
}

// Run processes the dataset to completion. Only dataset-level failures
// terminate the run; per-row remote faults are logged and skipped over.
func (e *Engine) Run(ctx context.Context, src *rows.Source) (Stats, error) {
	var stats Stats
	columns := src.Columns()

	for {
		row, err := src.Next()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, err
		}

		if row.Index < e.cfg.Start || row.Index > e.cfg.End {
			continue
		}
		if e.log.Skip(row.Index) {
			stats.Skipped++
			continue
		}

		stats.Evaluated++
		if err := e.reconcileRow(ctx, row, columns, &stats); err != nil {
			// Only checkpoint write failures propagate: losing journal
			// durability makes the rest of the run unresumable.
			return stats, err
		}
	}
}

// reconcileRow resolves one row end to end and writes its single
// checkpoint entry.
func (e *Engine) reconcileRow(ctx context.Context, row *rows.Row, columns rows.Columns, stats *Stats) error {
	email := row.Get(rows.ColEmail)
	ctx = logging.WithEmail(logging.WithRow(ctx, row.Index), email)
	rowLog := logging.Ctx(ctx)

	var actions []string
	status := checkpoint.StatusOK

	person, err := e.dir.Lookup(ctx, email, everyaction.DefaultExpand)
	if err != nil {
		stats.Errors++
		rowLog.Error().Err(err).Msg("lookup failed")
		return e.log.Append(row.Index, checkpoint.StatusError, email, err.Error())
	}

	switch {
	case person == nil && e.cfg.Strict:
		stats.NotFound++
		return e.log.Append(row.Index, checkpoint.StatusNotFound, email, "")

	case person == nil:
		actions = append(actions, "create")
		created, err := e.createContact(ctx, row, columns, &actions)
		if err != nil {
			// The contact does not exist: the row must be re-attempted
			// on resume, so it cannot reach a success status.
			stats.Errors++
			status = checkpoint.StatusError
			actions = append(actions, err.Error())
		} else if !e.cfg.DryRun {
			stats.Created++
		}
		person = created

	case e.cfg.Update:
		actions = append(actions, "update")
		if err := e.updateContact(ctx, person, row, columns, &actions); err != nil {
			stats.Errors++
			status = checkpoint.StatusError
			actions = append(actions, err.Error())
		} else if !e.cfg.DryRun {
			stats.Updated++
		}

	default:
		if columns.ExternalID {
			if mismatch := identityMismatch(person, row); mismatch != "" {
				stats.Mismatched++
				status = checkpoint.StatusMismatchID
				actions = append(actions, mismatch)
			}
		}
		if columns.Subscription {
			e.syncSubscription(ctx, person, row, &actions)
		}
		if columns.Phones {
			e.syncPhones(ctx, person, row, &actions)
		}
	}

	if columns.Tags && e.tags != nil && person != nil {
		e.syncTags(ctx, person, row, &actions)
	}

	rowLog.Debug().Strs("actions", actions).Msg("row reconciled")
	return e.log.Append(row.Index, status, email, strings.Join(actions, ", "))
}

// identityMismatch compares the row's external id against the remote
// contact's Action Network identifier. Informational only.
func identityMismatch(person *everyaction.Person, row *rows.Row) string {
	want := row.Get(rows.ColUUID)
	if want == "" {
		return ""
	}
	got, ok := person.Identifier(everyaction.IdentifierTypeActionNetwork)
	if !ok || got == want {
		return ""
	}
	return fmt.Sprintf("id mismatch(%s is %s)", want, got)
}

// createContact synthesizes a new remote contact from the row. Returns
// nil in dryrun mode, where no remote record exists to work against. A
// create failure is the row's primary mutation failing and is returned
// to the caller rather than absorbed.
func (e *Engine) createContact(ctx context.Context, row *rows.Row, columns rows.Columns, actions *[]string) (*everyaction.Person, error) {
	fields := e.buildFields(row, columns, actions)

	if e.cfg.DryRun {
		return nil, nil
	}

	person, err := e.dir.Create(ctx, fields)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("create failed")
		return nil, err
	}
	return person, nil
}

// updateContact re-pushes the row's fields onto an existing contact.
// Full overwrite semantics; a failure is returned like a failed create.
func (e *Engine) updateContact(ctx context.Context, person *everyaction.Person, row *rows.Row, columns rows.Columns, actions *[]string) error {
	fields := e.buildFields(row, columns, actions)

	if e.cfg.DryRun {
		return nil
	}

	if err := e.dir.Update(ctx, person.VanID, fields); err != nil {
		logging.Ctx(ctx).Error().Err(err).Int("vanId", person.VanID).Msg("update failed")
		return err
	}
	return nil
}

// buildFields assembles the pushable field set from a row.
func (e *Engine) buildFields(row *rows.Row, columns rows.Columns, actions *[]string) everyaction.PersonFields {
	email := everyaction.Email{
		Address:     row.Get(rows.ColEmail),
		Type:        everyaction.EmailTypePrivate,
		IsPreferred: true,
	}
	if columns.Subscription && row.Get(rows.ColSubscription) == "unsubscribed" {
		email.IsSubscribed = ptr.Bool(false)
	}

	fields := everyaction.PersonFields{
		FirstName: row.Get(rows.ColFirstName),
		LastName:  row.Get(rows.ColLastName),
		Emails:    []everyaction.Email{email},
	}

	if addr := e.fields.Build(row); addr != nil {
		fields.Addresses = []everyaction.Address{*addr}
	}

	if columns.Phones {
		fields.Phones = extractPhones(row, actions)
	}

	return fields
}

// syncSubscription pushes the row's subscription preference onto the
// contact's preferred email when the remote state disagrees. One
// directional: it never invents a preferred email and only subscribes
// someone whose remote state is unset.
func (e *Engine) syncSubscription(ctx context.Context, person *everyaction.Person, row *rows.Row, actions *[]string) {
	pref := person.PreferredEmail()
	if pref == nil {
		return
	}

	was := pref.SubscriptionStatus
	if was == "" {
		was = "None"
	}

	var subscribe bool
	switch {
	case row.Get(rows.ColSubscription) == "unsubscribed":
		if pref.SubscriptionStatus == everyaction.SubscriptionUnsubscribed {
			return
		}
		subscribe = false
		*actions = append(*actions, fmt.Sprintf("Unsubscribed(was %s)", was))
	default:
		if pref.SubscriptionStatus != "" {
			return
		}
		subscribe = true
		*actions = append(*actions, fmt.Sprintf("Subscribed(was %s)", was))
	}

	if e.cfg.DryRun {
		return
	}

	update := *pref
	update.IsSubscribed = ptr.To(subscribe)
	if err := e.dir.Update(ctx, person.VanID, everyaction.PersonFields{
		Emails: []everyaction.Email{update},
	}); err != nil {
		*actions = append(*actions, err.Error())
		logging.Ctx(ctx).Error().Err(err).Int("vanId", person.VanID).Msg("subscription update failed")
	}
}

// phoneCandidate is one number extracted from a row before dedup.
type phoneCandidate struct {
	phone everyaction.Phone
	label string
}

// extractCandidates pulls phone numbers from the mobile column plus the
// two generic phone columns, deduplicated by digits within the row.
func extractCandidates(row *rows.Row) []phoneCandidate {
	var candidates []phoneCandidate
	seen := make(map[string]bool)

	if mobile := row.Get(rows.ColMobile); mobile != "" {
		candidate := phoneCandidate{
			phone: everyaction.Phone{Number: mobile, Type: everyaction.PhoneTypeCell},
			label: "mobile",
		}
		if row.Get(rows.ColSMSStatus) == "subscribed" {
			candidate.phone.OptInStatus = everyaction.PhoneOptIn
			candidate.label = "mobile subscribed"
		}
		seen[Digits(mobile)] = true
		candidates = append(candidates, candidate)
	}

	for _, col := range []string{rows.ColPhone, rows.ColPhoneNumber} {
		number := row.Get(col)
		if number == "" {
			continue
		}
		digits := Digits(number)
		if seen[digits] {
			continue
		}
		seen[digits] = true
		candidates = append(candidates, phoneCandidate{
			phone: everyaction.Phone{Number: number},
			label: col,
		})
	}

	return candidates
}

// extractPhones returns the row's deduplicated phones, recording one
// action label per number. Used on create and force update, where there
// is no remote phone list to subtract.
func extractPhones(row *rows.Row, actions *[]string) []everyaction.Phone {
	candidates := extractCandidates(row)
	phones := make([]everyaction.Phone, 0, len(candidates))
	for _, c := range candidates {
		*actions = append(*actions, c.label)
		phones = append(phones, c.phone)
	}
	return phones
}

// syncPhones pushes row phones the contact does not already have.
func (e *Engine) syncPhones(ctx context.Context, person *everyaction.Person, row *rows.Row, actions *[]string) {
	existing := make(map[string]bool, len(person.Phones))
	for _, phone := range person.Phones {
		existing[Digits(phone.Number)] = true
	}

	var phones []everyaction.Phone
	for _, c := range extractCandidates(row) {
		if existing[Digits(c.phone.Number)] {
			continue
		}
		*actions = append(*actions, c.label)
		phones = append(phones, c.phone)
	}

	if len(phones) == 0 || e.cfg.DryRun {
		return
	}

	if err := e.dir.Update(ctx, person.VanID, everyaction.PersonFields{Phones: phones}); err != nil {
		*actions = append(*actions, err.Error())
		logging.Ctx(ctx).Error().Err(err).Int("vanId", person.VanID).Msg("phone update failed")
	}
}

// syncTags resolves the row's tags, subtracts codes already applied to
// the contact, and applies each remaining activist code individually.
// Generic codes resolve but are never pushed: the remote API has no
// supported apply operation for them.
func (e *Engine) syncTags(ctx context.Context, person *everyaction.Person, row *rows.Row, actions *[]string) {
	wanted := make(map[int]everyaction.CodeRef)
	for _, tag := range tagmap.SplitTags(row.Get(rows.ColTags)) {
		for _, code := range e.tags.Resolve(tag) {
			logging.Ctx(ctx).Debug().Str("tag", tag).Int("code", code.ID).Str("name", code.Name).Msg("mapped tag")
			wanted[code.ID] = code
		}
	}
	if len(wanted) == 0 {
		return
	}

	applied, err := e.dir.AppliedCodes(ctx, person.VanID)
	if err != nil {
		*actions = append(*actions, err.Error())
		logging.Ctx(ctx).Error().Err(err).Int("vanId", person.VanID).Msg("applied codes fetch failed")
		return
	}
	for _, code := range applied {
		delete(wanted, code.ID)
	}

	ids := make([]int, 0, len(wanted))
	for id := range wanted {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	for _, id := range ids {
		code := wanted[id]
		if code.Kind != everyaction.CodeKindActivist {
			continue
		}
		*actions = append(*actions, code.Name)
		if e.cfg.DryRun {
			continue
		}
		if err := e.dir.ApplyActivistCode(ctx, code.ID, person.VanID); err != nil {
			*actions = append(*actions, err.Error())
			logging.Ctx(ctx).Error().Err(err).Int("code", code.ID).Int("vanId", person.VanID).Msg("apply activist code failed")
		}
	}
}

// Digits reduces a phone number to its digits with any leading country
// code 1 removed, for duplicate detection.
func Digits(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) == 11 && digits[0] == '1' {
		digits = digits[1:]
	}
	return digits
}
