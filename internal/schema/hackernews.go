package schema

// SDL is the Hacker News content-graph schema served by hnql.
//
// The upstream item store conflates stories and Ask HN posts under one raw
// type; the Content interface plus runtime classification splits them. List
// fields take a `limit` applied to the upstream id order before fetching.
const SDL = `
enum ItemType {
  STORY
  COMMENT
  ASK
  JOB
}

interface Content {
  id: ID!
  type: ItemType!
  time: Int!
  title: String
  by: User
}

type Story implements Content {
  id: ID!
  type: ItemType!
  time: Int!
  title: String!
  by: User

  descendants: Int!
  score: Int!
  url: String!
  kids(limit: Int): [Content]!
  comments(limit: Int): [Comment]!
}

type Ask implements Content {
  id: ID!
  type: ItemType!
  time: Int!
  title: String!
  by: User

  descendants: Int!
  score: Int!
  url: String
  text: String
  kids(limit: Int): [Content]!
  comments(limit: Int): [Comment]!
}

type Job implements Content {
  id: ID!
  type: ItemType!
  time: Int!
  title: String!
  by: User

  score: Int!
  url: String
  text: String
}

type Comment implements Content {
  id: ID!
  type: ItemType!
  time: Int!
  title: String
  by: User!

  parent: Content
  text: String
  kids(limit: Int): [Content]!
  comments(limit: Int): [Comment]!
  hasReplies: Boolean!
}

type User {
  id: ID!
  username: ID!
  created: Int
  karma: Int
  about: String

  submitted(limit: Int): [Content]!
  stories(limit: Int): [Story]!
  comments(limit: Int): [Comment]!
}

type Query {
  item(id: ID!): Content
  user(id: ID!): User
  top(limit: Int): [Content]!
  new(limit: Int): [Content]!
  best(limit: Int): [Content]!
  topStories(limit: Int): [Content]!
  newStories(limit: Int): [Content]!
  bestStories(limit: Int): [Content]!
}
`

// asyncFields lists the resolver-backed fields that need upstream I/O.
// Everything else projects straight off the fetched payload.
var asyncFields = map[string][]string{
	"Query":   {"item", "user", "top", "new", "best", "topStories", "newStories", "bestStories"},
	"Content": {"by"},
	"Story":   {"by", "kids", "comments"},
	"Ask":     {"by", "kids", "comments"},
	"Job":     {"by"},
	"Comment": {"by", "parent", "kids", "comments"},
	"User":    {"submitted", "stories", "comments"},
}

// BuildHackerNews returns the executable Hacker News schema.
func BuildHackerNews() (*Schema, error) {
	s, err := BuildFromSDL(SDL)
	if err != nil {
		return nil, err
	}
	for typeName, fields := range asyncFields {
		t := s.Types[typeName]
		for _, name := range fields {
			if f := t.Field(name); f != nil {
				f.Async = true
			}
		}
	}
	return s, nil
}
