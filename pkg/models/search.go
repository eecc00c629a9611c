package models

import "strings"

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}

// FilterClients keeps clients whose name, email or phone contains term,
// ignoring case. An empty term keeps everything.
func FilterClients(clients []Client, term string) []Client {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return clients
	}
	out := make([]Client, 0, len(clients))
	for _, c := range clients {
		if containsFold(c.Name, term) || containsFold(c.Email, term) || containsFold(c.Phone, term) {
			out = append(out, c)
		}
	}
	return out
}

// FilterJobs keeps jobs whose title, client name or address contains term,
// ignoring case. An empty term keeps everything.
func FilterJobs(jobs []Job, term string) []Job {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return jobs
	}
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		clientName := ""
		if j.Client != nil {
			clientName = j.Client.Name
		}
		if containsFold(j.Title, term) || containsFold(clientName, term) || containsFold(j.Address, term) {
			out = append(out, j)
		}
	}
	return out
}
