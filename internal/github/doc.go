// Package github fetches pull request diffs from the GitHub REST API.
//
// It wraps the go-github client: given a PR URL or owner/repo/number, it
// pages through the changed-file list and returns a diff document carrying
// each file's patch fragment. Authentication comes from the GITHUB_TOKEN
// environment variable; GITHUB_API_URL points the client at a GitHub
// Enterprise instance.
package github
