package liststore

import (
	"github.com/xenogenesi/jcblock/internal/pkg/callerid"
)

// Store pairs the whitelist and blacklist of one phone line.
type Store struct {
	Whitelist *List
	Blacklist *List
	Append    AppendOptions
}

// NewStore builds a store over the two files. The whitelist is optional;
// the blacklist is not.
func NewStore(whitelist, blacklist string, layout Layout, opts AppendOptions) (*Store, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	if opts.Tag == "" {
		opts.Tag = KeyEntryTag
	}
	if opts.GenericNames == nil {
		opts.GenericNames = DefaultGenericNames
	}
	return &Store{
		Whitelist: &List{Kind: Whitelist, Path: whitelist, Layout: layout, Optional: true},
		Blacklist: &List{Kind: Blacklist, Path: blacklist, Layout: layout},
		Append:    opts,
	}, nil
}

// CheckWhitelist reports whether rec is whitelisted. Errors resolve to Match.
func (s *Store) CheckWhitelist(rec callerid.Record) (Verdict, *Entry, error) {
	return s.Whitelist.Check(rec)
}

// CheckBlacklist reports whether rec is blacklisted. Errors resolve to NoMatch.
func (s *Store) CheckBlacklist(rec callerid.Record) (Verdict, *Entry, error) {
	return s.Blacklist.Check(rec)
}

// AppendBlacklist adds an operator-authorized blacklist entry for rec.
func (s *Store) AppendBlacklist(rec callerid.Record) (Entry, error) {
	return s.Blacklist.Append(rec, s.Append)
}
