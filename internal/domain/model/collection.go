package model

// Collection names one persisted collection. The values are the storage
// keys the dashboard has always used.
type Collection string

// Persisted collections.
const (
	CollectionRecords       Collection = "kam-excel-data"
	CollectionCalls         Collection = "kam-call-records"
	CollectionQueries       Collection = "kam-user-queries"
	CollectionRetailerTags  Collection = "kam-retailer-tags"
	CollectionComplaintTags Collection = "kam-complaint-tags"
	CollectionAccounts      Collection = "kam-branch-accounts"
	CollectionUsers         Collection = "kam-users"
)

// Collections lists every persisted collection in load order.
var Collections = []Collection{
	CollectionRecords,
	CollectionCalls,
	CollectionQueries,
	CollectionRetailerTags,
	CollectionComplaintTags,
	CollectionAccounts,
	CollectionUsers,
}

// Action describes what a mutation did to a collection.
type Action string

// Mutation actions.
const (
	ActionReplace Action = "replace"
	ActionUpsert  Action = "upsert"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionCreate  Action = "create"
)
