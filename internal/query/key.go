package query

import (
	"net/url"
	"strings"
)

// Entity is a cached resource family. Every cached key belongs to exactly one.
type Entity string

const (
	Books     Entity = "books"
	Authors   Entity = "authors"
	Genres    Entity = "genres"
	Borrows   Entity = "borrows"
	Favorites Entity = "favorites"
	Users     Entity = "users"
	Stats     Entity = "stats"
	Me        Entity = "me"
)

func AllEntities() []Entity {
	return []Entity{Books, Authors, Genres, Borrows, Favorites, Users, Stats, Me}
}

// Key identifies one cached request: the entity, the operation and its
// canonical parameters.
type Key struct {
	Entity Entity
	Op     string
	Params string
}

// NewKey canonicalizes params (sorted, blanks dropped) so equal tuples map to
// the same key regardless of insertion order.
func NewKey(e Entity, op string, params url.Values) Key {
	clean := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			if v = strings.TrimSpace(v); v != "" {
				clean.Add(k, v)
			}
		}
	}
	return Key{Entity: e, Op: op, Params: clean.Encode()}
}

func (k Key) String() string {
	if k.Params == "" {
		return string(k.Entity) + ":" + k.Op
	}
	return string(k.Entity) + ":" + k.Op + "?" + k.Params
}

// Mutation names a successful write and, through Affects, the entities whose
// cached reads it makes stale.
type Mutation string

const (
	BookWrite     Mutation = "book.write"
	AuthorWrite   Mutation = "author.write"
	GenreWrite    Mutation = "genre.write"
	BorrowCreate  Mutation = "borrow.create"
	BorrowReturn  Mutation = "borrow.return"
	BorrowRenew   Mutation = "borrow.renew"
	FavoriteWrite Mutation = "favorite.write"
	UserWrite     Mutation = "user.write"
	SessionChange Mutation = "session.change"
)

// Affects maps each mutation to the entities it invalidates. Borrow creation
// and return move stock, so book reads and dashboard counts go with them.
var Affects = map[Mutation][]Entity{
	BookWrite:     {Books, Favorites, Stats},
	AuthorWrite:   {Authors, Books},
	GenreWrite:    {Genres, Books},
	BorrowCreate:  {Borrows, Favorites, Books, Stats},
	BorrowReturn:  {Borrows, Books, Stats},
	BorrowRenew:   {Borrows, Stats},
	FavoriteWrite: {Favorites},
	UserWrite:     {Users, Borrows, Me},
	SessionChange: AllEntities(),
}
