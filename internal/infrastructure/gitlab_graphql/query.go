package gitlab_graphql

import (
	"encoding/json"
	"fmt"
)

const projectFields = `name
      fullPath
      webUrl
      pipelines(first: 1) {
        nodes {
          id
          detailedStatus {
            detailsPath
          }
          status
          finishedAt
          createdAt
          coverage
        }
      }`

// groupQuery asks for the first page of projects in a group and its subgroups.
func groupQuery(groupPath string) string {
	return fmt.Sprintf(`query {
  group(fullPath: %s) {
    id
    name
    projects(includeSubgroups: true) {
      pageInfo {
        hasNextPage
      }
      nodes {
      %s
      }
    }
  }
}`, quote(groupPath), projectFields)
}

func projectQuery(projectPath string) string {
	return fmt.Sprintf(`query {
  project(fullPath: %s) {
      %s
  }
}`, quote(projectPath), projectFields)
}

// quote renders s as a GraphQL string literal. JSON string escaping is a
// subset of what GraphQL accepts.
func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
