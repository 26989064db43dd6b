package storage

import (
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/okian/kam/internal/domain/model"
)

// table maps one collection onto its Postgres table. columns excludes
// position, which rows prepends and scan expects first.
type table struct {
	name    string
	columns []string
	rows    func(*model.Snapshot) [][]any
	scan    func(pgx.Rows, *model.Snapshot) error
}

func (t table) selectList() string {
	return strings.Join(t.columns[1:], ", ")
}

func withPosition(cols ...string) []string {
	return append([]string{"position"}, cols...)
}

var tables = map[model.Collection]table{
	model.CollectionRecords: {
		name:    "excel_data",
		columns: withPosition("user_id", "date", "name", "poc", "potential", "last_30_days", "pro_rated_ach", "short_fall"),
		rows: func(s *model.Snapshot) [][]any {
			out := make([][]any, len(s.Records))
			for i, r := range s.Records {
				out[i] = []any{i, r.UserID, r.Date, r.Name, r.POC, r.Potential, r.Last30Days, r.ProRatedAch, r.ShortFall}
			}
			return out
		},
		scan: func(rows pgx.Rows, s *model.Snapshot) error {
			s.Records = []model.PerformanceRecord{}
			for rows.Next() {
				var r model.PerformanceRecord
				if err := rows.Scan(&r.UserID, &r.Date, &r.Name, &r.POC, &r.Potential, &r.Last30Days, &r.ProRatedAch, &r.ShortFall); err != nil {
					return err
				}
				s.Records = append(s.Records, r)
			}
			return rows.Err()
		},
	},
	model.CollectionCalls: {
		name:    "call_records",
		columns: withPosition("user_id", "status", "comment", "complaint_tag", "timestamp", "created_by"),
		rows: func(s *model.Snapshot) [][]any {
			out := make([][]any, len(s.Calls))
			for i, c := range s.Calls {
				out[i] = []any{i, c.UserID, string(c.Status), c.Comment, c.ComplaintTag, c.Timestamp, c.CreatedBy}
			}
			return out
		},
		scan: func(rows pgx.Rows, s *model.Snapshot) error {
			s.Calls = []model.CallRecord{}
			for rows.Next() {
				var c model.CallRecord
				var status string
				if err := rows.Scan(&c.UserID, &status, &c.Comment, &c.ComplaintTag, &c.Timestamp, &c.CreatedBy); err != nil {
					return err
				}
				c.Status = model.CallStatus(status)
				s.Calls = append(s.Calls, c)
			}
			return rows.Err()
		},
	},
	model.CollectionQueries: {
		name:    "user_queries",
		columns: withPosition("id", "user_id", "user_name", "complaint_tag", "comment", "status", "timestamp", "created_by"),
		rows: func(s *model.Snapshot) [][]any {
			out := make([][]any, len(s.Queries))
			for i, q := range s.Queries {
				out[i] = []any{i, q.ID, q.UserID, q.UserName, q.ComplaintTag, q.Comment, string(q.Status), q.Timestamp, q.CreatedBy}
			}
			return out
		},
		scan: func(rows pgx.Rows, s *model.Snapshot) error {
			s.Queries = []model.UserQuery{}
			for rows.Next() {
				var q model.UserQuery
				var status string
				if err := rows.Scan(&q.ID, &q.UserID, &q.UserName, &q.ComplaintTag, &q.Comment, &status, &q.Timestamp, &q.CreatedBy); err != nil {
					return err
				}
				q.Status = model.QueryStatus(status)
				s.Queries = append(s.Queries, q)
			}
			return rows.Err()
		},
	},
	model.CollectionRetailerTags: {
		name:    "retailer_tags",
		columns: withPosition("user_id", "user_name", "retailers", "timestamp", "created_by"),
		rows: func(s *model.Snapshot) [][]any {
			out := make([][]any, len(s.RetailerTags))
			for i, t := range s.RetailerTags {
				out[i] = []any{i, t.UserID, t.UserName, t.Retailers, t.Timestamp, t.CreatedBy}
			}
			return out
		},
		scan: func(rows pgx.Rows, s *model.Snapshot) error {
			s.RetailerTags = []model.RetailerTag{}
			for rows.Next() {
				var t model.RetailerTag
				if err := rows.Scan(&t.UserID, &t.UserName, &t.Retailers, &t.Timestamp, &t.CreatedBy); err != nil {
					return err
				}
				s.RetailerTags = append(s.RetailerTags, t)
			}
			return rows.Err()
		},
	},
	model.CollectionComplaintTags: {
		name:    "complaint_tags",
		columns: withPosition("name"),
		rows: func(s *model.Snapshot) [][]any {
			out := make([][]any, len(s.ComplaintTags))
			for i, name := range s.ComplaintTags {
				out[i] = []any{i, name}
			}
			return out
		},
		scan: func(rows pgx.Rows, s *model.Snapshot) error {
			s.ComplaintTags = []string{}
			for rows.Next() {
				var name string
				if err := rows.Scan(&name); err != nil {
					return err
				}
				s.ComplaintTags = append(s.ComplaintTags, name)
			}
			return rows.Err()
		},
	},
	model.CollectionAccounts: {
		name: "branch_accounts",
		columns: withPosition("id", "first_name", "last_name", "email", "phone", "department",
			"role", "branch", "username", "password_hash", "created_at", "created_by"),
		rows: func(s *model.Snapshot) [][]any {
			out := make([][]any, len(s.Accounts))
			for i, a := range s.Accounts {
				out[i] = []any{i, a.ID, a.FirstName, a.LastName, a.Email, a.Phone, a.Department,
					string(a.Role), a.Branch, a.Username, a.PasswordHash, a.CreatedAt, a.CreatedBy}
			}
			return out
		},
		scan: func(rows pgx.Rows, s *model.Snapshot) error {
			s.Accounts = []model.BranchAccount{}
			for rows.Next() {
				var a model.BranchAccount
				var role string
				if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.Phone, &a.Department,
					&role, &a.Branch, &a.Username, &a.PasswordHash, &a.CreatedAt, &a.CreatedBy); err != nil {
					return err
				}
				a.Role = model.Role(role)
				s.Accounts = append(s.Accounts, a)
			}
			return rows.Err()
		},
	},
	model.CollectionUsers: {
		name:    "users",
		columns: withPosition("id", "email", "username", "role", "name", "poc", "password_hash", "created_at"),
		rows: func(s *model.Snapshot) [][]any {
			out := make([][]any, len(s.Users))
			for i, u := range s.Users {
				out[i] = []any{i, u.ID, u.Email, u.Username, string(u.Role), u.Name, u.POC, u.PasswordHash, u.CreatedAt}
			}
			return out
		},
		scan: func(rows pgx.Rows, s *model.Snapshot) error {
			s.Users = []model.User{}
			for rows.Next() {
				var u model.User
				var role string
				if err := rows.Scan(&u.ID, &u.Email, &u.Username, &role, &u.Name, &u.POC, &u.PasswordHash, &u.CreatedAt); err != nil {
					return err
				}
				u.Role = model.Role(role)
				s.Users = append(s.Users, u)
			}
			return rows.Err()
		},
	},
}
