package types

import (
	"fmt"
	"strings"
)

// TrainingJob identifies one training run. It is built once from configuration
// and never modified afterwards.
type TrainingJob struct {
	Guid           string
	Plant          string
	NodeId         string
	NodeParameters string
	Algorithms     []string
}

// AlgorithmRun is the unit of work for one algorithm of a job. ModelGuid is the
// key of the provisioned row backing this run.
type AlgorithmRun struct {
	JobGuid   string
	Algorithm string
	ModelGuid string
	Position  int
}

func (r AlgorithmRun) String() string {
	return fmt.Sprintf("%s/%s", r.JobGuid, r.Algorithm)
}

// ParseAlgorithmList splits a comma separated algorithm list, trimming
// whitespace and dropping empty entries. Duplicates are kept.
func ParseAlgorithmList(list string) []string {
	var algorithms []string
	for _, part := range strings.Split(list, ",") {
		if algo := strings.TrimSpace(part); algo != "" {
			algorithms = append(algorithms, algo)
		}
	}
	return algorithms
}
