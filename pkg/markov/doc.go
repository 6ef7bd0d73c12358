/*
Package markov turns prose into a weighted n-gram follow table that can be
printed and played with dice.

A Counter reads a document line by line. Each line is split into word and
punctuation tokens by a Tokenizer, spellings are reconciled by a CaseNormalizer,
and every (prefix, follower) pair seen through a sliding window of n-1 tokens is
counted. Entries returns the finished table with each word in its final
spelling, sorted for output.

Entries are then mapped onto roll ranges with ScaleEntry (a die of a chosen
size, a power-of-ten digit range, or raw counts), split into similarly sized
volumes with SplitBooks, and can be walked back into text with a Table.
*/
package markov
