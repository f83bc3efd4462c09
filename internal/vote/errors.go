package vote

import "errors"

// ErrInvalidVote marks submissions the ledger refuses outright: missing
// session or content ids, duplicate ids within one submission, or totals that
// would pass the per-session cap. Nothing is recorded for a rejected
// submission.
var ErrInvalidVote = errors.New("invalid vote submission")

// ErrAlreadyVoted marks a submission that repeats a (session, content) pair
// already on record. The whole submission is rejected, not just the repeated
// pair.
var ErrAlreadyVoted = errors.New("content already voted in this session")
