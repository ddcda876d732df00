package storage

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/clean-berry/TSNsched/report"
)

const (
	ConstraintsFile = "constraints.smt2"
	ReportFile      = "report.json"
)

// FileManager keeps the artifacts of the latest run in one output directory.
type FileManager struct {
	dataDir         string
	constraintsFile string
	reportFile      string
	constraintsHash string
	reportHash      string
	reportLock      sync.RWMutex
	hashLock        sync.RWMutex
	report          *report.Report
	previous        *report.Report
	previousHash    string
}

func NewFileManager(dataDir string) (*FileManager, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir %s: %w", dataDir, err)
	}
	manager := &FileManager{
		dataDir:         dataDir,
		constraintsFile: filepath.Join(dataDir, ConstraintsFile),
		reportFile:      filepath.Join(dataDir, ReportFile),
	}
	manager.loadReport()
	manager.calculateHashes()
	manager.previous = manager.report
	if manager.previous != nil {
		manager.previousHash = manager.reportHash
	}
	return manager, nil
}

func (fm *FileManager) loadReport() {
	fm.reportLock.Lock()
	defer fm.reportLock.Unlock()

	data, err := os.ReadFile(fm.reportFile)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warningf("Error reading reportFile (%s): %v", fm.reportFile, err)
		}
		return
	}
	var r report.Report
	if err := json.Unmarshal(data, &r); err != nil {
		log.Warningf("error unmarshalling reportFile (%s): %v", fm.reportFile, err)
		return
	}
	fm.report = &r
	log.Infof("successfully loaded. File: %v", fm.reportFile)
}

// SaveConstraints writes the script produced by write to constraints.smt2.
func (fm *FileManager) SaveConstraints(write func(io.Writer) error) error {
	f, err := os.Create(fm.constraintsFile)
	if err != nil {
		return fmt.Errorf("failed to create constraints file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write constraints file: %w", err)
	}
	fm.calculateHashes()
	return nil
}

func (fm *FileManager) SaveReport(r *report.Report) error {
	fm.reportLock.Lock()
	defer fm.reportLock.Unlock()

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(fm.reportFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write report file: %w", err)
	}
	fm.report = r
	fm.calculateHashes()
	return nil
}

func (fm *FileManager) GetReport() *report.Report {
	fm.reportLock.RLock()
	defer fm.reportLock.RUnlock()
	return fm.report
}

// PreviousRun returns the report found in the output directory when the
// manager was opened and its md5. Later saves do not change it.
func (fm *FileManager) PreviousRun() (*report.Report, string, bool) {
	return fm.previous, fm.previousHash, fm.previous != nil
}

func (fm *FileManager) ConstraintsPath() string { return fm.constraintsFile }
func (fm *FileManager) ReportPath() string      { return fm.reportFile }

func (fm *FileManager) GetConstraintsHash() string {
	fm.hashLock.RLock()
	defer fm.hashLock.RUnlock()
	return fm.constraintsHash
}

func (fm *FileManager) GetReportHash() string {
	fm.hashLock.RLock()
	defer fm.hashLock.RUnlock()
	return fm.reportHash
}

func calculateFileMD5(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)
	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func (fm *FileManager) calculateHashes() {
	fm.hashLock.Lock()
	defer fm.hashLock.Unlock()

	if hash, err := calculateFileMD5(fm.constraintsFile); err == nil {
		fm.constraintsHash = hash
	} else {
		log.Warningf("constraints file hash failed, err: %v", err)
	}
	if hash, err := calculateFileMD5(fm.reportFile); err == nil {
		fm.reportHash = hash
	} else {
		log.Warningf("report file hash failed, err: %v", err)
	}
	log.Debugf("calculateHashes, constraintsHash: %s, reportHash: %s", fm.constraintsHash, fm.reportHash)
}
