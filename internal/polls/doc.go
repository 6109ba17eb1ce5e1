// Package polls implements users, polls and votes on top of the sharded
// storage layer.
//
// Shard placement rules:
//
//	entity   shard key
//	------   ---------
//	user     user ID
//	poll     poll ID
//	vote     poll ID of the poll voted on (never the vote or voter ID)
//
// Votes live next to their poll so that tallying a poll's results is a single
// shard read. Reads keyed by a user across polls or votes (a user's polls, a
// user's votes, every poll) fan out to all shards and concatenate whatever the
// reachable shards return.
//
// IDs are "<prefix>_<unix millis>_<9 base36 chars>". They are generated before
// routing and carry no shard information. Uniqueness rests on the timestamp
// and a non-cryptographic random suffix; collisions are unlikely, not
// impossible.
//
// Every operation reports failures as *Error with a Kind of validation,
// not_found, forbidden or internal. Classification comes from result success
// flags and explicit existence checks, never from driver error text.
package polls
