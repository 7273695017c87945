// Package commands holds the curated command templates offered to
// operators. Templates are a static catalog; execution goes through
// the executor like any ad-hoc command.
package commands

// Template is a named, ready-to-run shell command.
type Template struct {
	Name    string `json:"name"`
	Command string `json:"command"`
}

// Category groups templates by concern.
type Category struct {
	Category string     `json:"category"`
	Commands []Template `json:"commands"`
}

var catalog = []Category{
	{
		Category: "System Info",
		Commands: []Template{
			{Name: "Hostname", Command: "hostname"},
			{Name: "OS Info", Command: "cat /etc/os-release | head -5"},
			{Name: "Kernel Version", Command: "uname -r"},
			{Name: "CPU Info", Command: `lscpu | grep -E "Model name|CPU\(s\)|Thread"`},
			{Name: "Memory Info", Command: "free -h"},
			{Name: "Disk Usage", Command: "df -h"},
		},
	},
	{
		Category: "Processes",
		Commands: []Template{
			{Name: "Top Processes by CPU", Command: "ps aux --sort=-%cpu | head -10"},
			{Name: "Top Processes by Memory", Command: "ps aux --sort=-%mem | head -10"},
			{Name: "Process Count", Command: "ps aux | wc -l"},
			{Name: "Running Services", Command: "systemctl list-units --type=service --state=running"},
		},
	},
	{
		Category: "Network",
		Commands: []Template{
			{Name: "Network Interfaces", Command: "ip addr show"},
			{Name: "Network Connections", Command: "ss -tuln"},
			{Name: "Routing Table", Command: "ip route"},
			{Name: "DNS Configuration", Command: "cat /etc/resolv.conf"},
		},
	},
	{
		Category: "Logs",
		Commands: []Template{
			{Name: "System Logs (last 20)", Command: "journalctl -n 20 --no-pager"},
			{Name: "Auth Logs", Command: `tail -20 /var/log/auth.log 2>/dev/null || echo "Log file not accessible"`},
			{Name: "Kernel Messages", Command: "dmesg | tail -20"},
		},
	},
	{
		Category: "Disk & Storage",
		Commands: []Template{
			{Name: "Disk I/O Stats", Command: "iostat -x 1 2 | tail -n +4"},
			{Name: "Large Files (Top 10)", Command: "du -ah /var | sort -rh | head -10"},
			{Name: "Inode Usage", Command: "df -i"},
		},
	},
}

// Templates returns the full catalog. Callers must not mutate it.
func Templates() []Category {
	return catalog
}
